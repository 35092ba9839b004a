package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は指定した名前のメトリクスファミリーを返す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスから指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestCollector_ImplementsMetricsCollector はインターフェースを満たすことを検証する。
func TestCollector_ImplementsMetricsCollector(t *testing.T) {
	var _ MetricsCollector = NewCollector(prometheus.NewRegistry())
}

// TestRecordTokenIssued_IncrementsCounter はトークン発行カウンタが増加することを検証する。
func TestRecordTokenIssued_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenIssued()
	c.RecordTokenIssued()

	mf := findMetricFamily(t, reg, "bankmock_tokens_issued_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("tokens_issued_total = %v, want 2", val)
	}
}

// TestRecordAuthFailure_LabelsByReason は認証失敗が理由別に集計されることを検証する。
func TestRecordAuthFailure_LabelsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthFailure("missing_credential")
	c.RecordAuthFailure("invalid_credential")
	c.RecordAuthFailure("invalid_credential")

	mf := findMetricFamily(t, reg, "bankmock_auth_failures_total")
	got := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "reason")] = m.GetCounter().GetValue()
	}

	if got["missing_credential"] != 1 {
		t.Errorf("missing_credential = %v, want 1", got["missing_credential"])
	}
	if got["invalid_credential"] != 2 {
		t.Errorf("invalid_credential = %v, want 2", got["invalid_credential"])
	}
}

// TestRecordExchangeFailure_LabelsByCode は交換失敗がコード別に集計されることを検証する。
func TestRecordExchangeFailure_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordExchangeFailure("INVALID_PERSONA")

	mf := findMetricFamily(t, reg, "bankmock_exchange_failures_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "code") != "INVALID_PERSONA" {
		t.Errorf("code label = %q, want %q", labelValue(m, "code"), "INVALID_PERSONA")
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("value = %v, want 1", m.GetCounter().GetValue())
	}
}

// TestRecordWebhookEvent_IncrementsCounter はWebhookイベントが記録されることを検証する。
func TestRecordWebhookEvent_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordWebhookEvent("TRANSACTIONS_READY")

	mf := findMetricFamily(t, reg, "bankmock_webhook_events_total")
	if labelValue(mf.GetMetric()[0], "webhook_code") != "TRANSACTIONS_READY" {
		t.Error("webhook_code label not set")
	}
}

// TestRecordRateLimited_IncrementsCounter はレート制限が記録されることを検証する。
func TestRecordRateLimited_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRateLimited("exchange")

	mf := findMetricFamily(t, reg, "bankmock_rate_limited_total")
	if mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Error("rate_limited_total should be 1")
	}
}

// TestRecordHTTPStatus_LabelsByStatusCode はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_LabelsByStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)
	c.RecordHTTPStatus(200)

	mf := findMetricFamily(t, reg, "bankmock_http_status_total")
	got := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "status_code")] = m.GetCounter().GetValue()
	}
	if got["200"] != 2 || got["401"] != 1 {
		t.Errorf("status counts = %v", got)
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency("/accounts", 150*time.Millisecond)

	mf := findMetricFamily(t, reg, "bankmock_http_request_duration_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.14 || h.GetSampleSum() > 0.16 {
		t.Errorf("sample sum = %v, want ~0.15", h.GetSampleSum())
	}
}
