package fixture

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/hitoshi/bankmock/internal/model"
)

//go:embed fixtures/*.json
var embeddedFS embed.FS

// ErrNoPersonas はフィクスチャが1件も見つからなかった場合のエラー。
var ErrNoPersonas = errors.New("no persona fixtures found")

// LoadFS はfsysのルート直下にある <persona>.json を読み込みStoreを生成する。
// ファイル名から拡張子を除いた部分がペルソナ名になる。
func LoadFS(fsys fs.FS) (*Store, error) {
	personas, err := ReadFS(fsys)
	if err != nil {
		return nil, err
	}
	return NewStore(personas), nil
}

// ReadFS はfsysからペルソナを読み込みmapで返す。
// importサブコマンドでDBへ投入する際にも使用する。
func ReadFS(fsys fs.FS) (map[string]model.Persona, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}

	personas := make(map[string]model.Persona)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture %s: %w", entry.Name(), err)
		}

		var p model.Persona
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse fixture %s: %w", entry.Name(), err)
		}
		personas[name] = p
	}

	if len(personas) == 0 {
		return nil, ErrNoPersonas
	}
	return personas, nil
}

// LoadDir はディレクトリからフィクスチャを読み込む。
func LoadDir(dir string) (*Store, error) {
	return LoadFS(os.DirFS(dir))
}

// EmbeddedFS はバイナリに埋め込まれたデフォルトフィクスチャを返す。
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedFS, "fixtures")
	if err != nil {
		// go:embedのパターンと一致しているため発生しない
		panic(err)
	}
	return sub
}

// LoadDefault は埋め込みフィクスチャからStoreを生成する。
func LoadDefault() (*Store, error) {
	return LoadFS(EmbeddedFS())
}
