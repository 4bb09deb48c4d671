package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"shieldcare/internal/contract"
	"shieldcare/internal/eligibility"
	"shieldcare/internal/fhe"
	"shieldcare/internal/platform/metrics"
	"shieldcare/internal/wallet"
)

const waitTimeout = 5 * time.Second

type HandlerSuite struct {
	suite.Suite
	workflow *eligibility.Workflow
	wallet   *wallet.Connector
	metrics  *metrics.Metrics
	router   chi.Router
	token    string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.setup(fhe.NewMock())
}

func (s *HandlerSuite) TearDownTest() {
	s.workflow.Reset(context.Background())
	s.workflow.Close()
}

func (s *HandlerSuite) setup(enc *fhe.Mock) {
	if s.workflow != nil {
		s.workflow.Close()
	}
	w, err := eligibility.New(enc, contract.NewMock())
	s.Require().NoError(err)
	conn, err := wallet.New("test-signing-key", wallet.WithConnectDelay(0))
	s.Require().NoError(err)

	s.workflow = w
	s.wallet = conn
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.router = chi.NewRouter()
	New(w, conn, nil, WithMetrics(s.metrics)).Register(s.router)
	s.token = s.connect()
}

func (s *HandlerSuite) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) connect() string {
	rec := s.do(http.MethodPost, "/wallet/connect", "", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp WalletResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.Token)
	s.Require().True(strings.HasPrefix(resp.Address, "0x"))
	return resp.Token
}

func (s *HandlerSuite) decodeSnapshot(rec *httptest.ResponseRecorder) SnapshotResponse {
	var snap SnapshotResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func (s *HandlerSuite) decodeError(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) waitForDone() eligibility.Snapshot {
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		snap := s.workflow.Snapshot()
		if snap.Stage == eligibility.StageDone {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.FailNow("workflow did not reach done")
	return eligibility.Snapshot{}
}

// =============================================================================
// Wallet
// =============================================================================

func (s *HandlerSuite) TestConnectCountsSessions() {
	s.connect()
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.WalletsIssued))
}

func (s *HandlerSuite) TestConnectAbandonedByClientWritesNothing() {
	slow, err := wallet.New("test-signing-key", wallet.WithConnectDelay(time.Hour))
	s.Require().NoError(err)
	m := metrics.New(prometheus.NewRegistry())
	router := chi.NewRouter()
	New(s.workflow, slow, nil, WithMetrics(m)).Register(router)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/wallet/connect", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	s.Empty(rec.Body.String())
	s.Empty(rec.Header().Get("Content-Type"))
	s.Equal(float64(0), testutil.ToFloat64(m.WalletsIssued))
}

// =============================================================================
// Snapshot and form
// =============================================================================

func (s *HandlerSuite) TestSnapshot() {
	rec := s.do(http.MethodGet, "/eligibility", "", "")
	s.Equal(http.StatusOK, rec.Code)
	snap := s.decodeSnapshot(rec)
	s.Equal(eligibility.StageIdle, snap.Stage)
	s.Equal(0, snap.Step)
	s.False(snap.Processing)
	s.Equal("Enter health data to check eligibility", snap.Message)
	s.Nil(snap.RunID)
	s.Nil(snap.Encrypted)
}

func (s *HandlerSuite) TestSetForm() {
	s.Run("applies only the supplied fields", func() {
		rec := s.do(http.MethodPut, "/eligibility/form", `{"age":"65","bloodSugar":"90"}`, "")
		s.Equal(http.StatusOK, rec.Code)
		snap := s.decodeSnapshot(rec)
		s.Equal("65", snap.Form.Age)
		s.Equal("", snap.Form.SystolicBP)
		s.Equal("90", snap.Form.BloodSugar)
	})

	s.Run("empty object is rejected", func() {
		rec := s.do(http.MethodPut, "/eligibility/form", `{}`, "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_error", s.decodeError(rec)["error"])
	})

	s.Run("unknown field is rejected", func() {
		rec := s.do(http.MethodPut, "/eligibility/form", `{"weight":"80"}`, "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("bad_request", s.decodeError(rec)["error"])
	})

	s.Run("malformed JSON is rejected", func() {
		rec := s.do(http.MethodPut, "/eligibility/form", `{"age":`, "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Submit and reset
// =============================================================================

func (s *HandlerSuite) TestSubmit() {
	s.Run("requires a wallet", func() {
		rec := s.do(http.MethodPost, "/eligibility/submit", `{"age":"65","bloodPressure":"110","bloodSugar":"90"}`, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Equal("unauthorized", s.decodeError(rec)["error"])
		s.Equal(eligibility.StageIdle, s.workflow.Snapshot().Stage)
	})

	s.Run("rejects an invalid token", func() {
		rec := s.do(http.MethodPost, "/eligibility/submit", "", "forged")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("incomplete form is a validation error", func() {
		rec := s.do(http.MethodPost, "/eligibility/submit", `{"age":"45"}`, s.token)
		s.Equal(http.StatusBadRequest, rec.Code)
		body := s.decodeError(rec)
		s.Equal("validation_error", body["error"])
		s.Contains(body["error_description"], "please enter complete health information")
		s.Equal(eligibility.StageIdle, s.workflow.Snapshot().Stage)
	})

	s.Run("body fields start a run that completes", func() {
		rec := s.do(http.MethodPost, "/eligibility/submit", `{"age":"65","bloodPressure":"110","bloodSugar":"90"}`, s.token)
		s.Require().Equal(http.StatusAccepted, rec.Code)
		var resp SubmitResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.NotEmpty(resp.RunID)

		snap := s.waitForDone()
		s.Equal(resp.RunID, snap.RunID)
		s.Require().NotNil(snap.Result)
		s.True(snap.Result.Eligible)
		s.True(snap.Result.Conditions.AgeCheck)
		s.False(snap.Result.Conditions.BPCheck)
	})

	s.Run("submit without body uses the stored form", func() {
		rec := s.do(http.MethodPost, "/eligibility/submit", "", s.token)
		s.Require().Equal(http.StatusAccepted, rec.Code)
		snap := s.waitForDone()
		s.Require().NotNil(snap.Result)
		s.True(snap.Result.Eligible)
	})
}

func (s *HandlerSuite) TestSubmitWhileBusyConflicts() {
	s.setup(fhe.NewMock(fhe.WithEncryptDelay(time.Hour)))
	body := `{"age":"45","bloodPressure":"120","bloodSugar":"100"}`

	rec := s.do(http.MethodPost, "/eligibility/submit", body, s.token)
	s.Require().Equal(http.StatusAccepted, rec.Code)

	rec = s.do(http.MethodPost, "/eligibility/submit", "", s.token)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("conflict", s.decodeError(rec)["error"])

	rec = s.do(http.MethodGet, "/eligibility", "", "")
	snap := s.decodeSnapshot(rec)
	s.Equal(eligibility.StageEncrypting, snap.Stage)
	s.True(snap.Processing)

	s.Run("reset cancels the run", func() {
		rec := s.do(http.MethodPost, "/eligibility/reset", "", s.token)
		s.Equal(http.StatusOK, rec.Code)
		snap := s.decodeSnapshot(rec)
		s.Equal(eligibility.StageIdle, snap.Stage)
		s.Equal("", snap.Form.Age)
		s.Nil(snap.Result)
	})
}

func (s *HandlerSuite) TestRejectedSubmitKeepsForm() {
	s.Run("validation failure discards the body", func() {
		s.do(http.MethodPut, "/eligibility/form", `{"age":"50"}`, "")
		rec := s.do(http.MethodPost, "/eligibility/submit", `{"age":"70","bloodPressure":"abc"}`, s.token)
		s.Equal(http.StatusBadRequest, rec.Code)

		snap := s.workflow.Snapshot()
		s.Equal(eligibility.StageIdle, snap.Stage)
		s.Equal("50", snap.Form.Age)
		s.Equal("", snap.Form.SystolicBP)
	})

	s.Run("busy workflow discards the body", func() {
		s.setup(fhe.NewMock(fhe.WithEncryptDelay(time.Hour)))
		rec := s.do(http.MethodPost, "/eligibility/submit", `{"age":"45","bloodPressure":"120","bloodSugar":"100"}`, s.token)
		s.Require().Equal(http.StatusAccepted, rec.Code)

		rec = s.do(http.MethodPost, "/eligibility/submit", `{"age":"99","bloodPressure":"200","bloodSugar":"300"}`, s.token)
		s.Equal(http.StatusConflict, rec.Code)

		snap := s.workflow.Snapshot()
		s.Equal(eligibility.StageEncrypting, snap.Stage)
		s.Equal("45", snap.Form.Age)
		s.Equal("120", snap.Form.SystolicBP)
		s.Equal("100", snap.Form.BloodSugar)
	})
}

func (s *HandlerSuite) TestWalletGateDisabled() {
	router := chi.NewRouter()
	New(s.workflow, s.wallet, nil, WithWalletRequired(false)).Register(router)

	req := httptest.NewRequest(http.MethodPost, "/eligibility/reset", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestReset() {
	s.Run("requires a wallet", func() {
		rec := s.do(http.MethodPost, "/eligibility/reset", "", "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("clears the form", func() {
		s.do(http.MethodPut, "/eligibility/form", `{"age":"70"}`, "")
		rec := s.do(http.MethodPost, "/eligibility/reset", "", s.token)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("", s.decodeSnapshot(rec).Form.Age)
	})
}

// =============================================================================
// Health status
// =============================================================================

func (s *HandlerSuite) TestHealthStatus() {
	tests := []struct {
		name   string
		query  string
		code   int
		status string
	}{
		{"senior", "?metric=age&value=61", http.StatusOK, "Senior"},
		{"alias", "?metric=bp&value=130", http.StatusOK, "Pre-hypertension"},
		{"sugar", "?metric=bloodSugar&value=200", http.StatusOK, "High Blood Sugar"},
		{"unknown metric", "?metric=weight&value=80", http.StatusBadRequest, ""},
		{"non-numeric value", "?metric=age&value=old", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodGet, "/health-status"+tt.query, "", "")
			s.Equal(tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}
			var resp StatusResponse
			s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
			s.Equal(tt.status, resp.Status)
		})
	}
}

// =============================================================================
// Event stream
// =============================================================================

func (s *HandlerSuite) TestEventStream() {
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/eligibility/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	defer conn.Close()
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(waitTimeout)))

	var first EventResponse
	s.Require().NoError(conn.ReadJSON(&first))
	s.Equal("snapshot", first.Kind)
	s.Equal(eligibility.StageIdle, first.Stage)

	rec := s.do(http.MethodPost, "/eligibility/submit", `{"age":"30","bloodPressure":"110","bloodSugar":"90"}`, s.token)
	s.Require().Equal(http.StatusAccepted, rec.Code)

	var stages []eligibility.Stage
	for {
		var ev EventResponse
		s.Require().NoError(conn.ReadJSON(&ev))
		if ev.Kind != string(eligibility.EventTransition) {
			continue
		}
		stages = append(stages, ev.Stage)
		if ev.Stage == eligibility.StageDone {
			s.Require().NotNil(ev.Snapshot.Result)
			s.False(ev.Snapshot.Result.Eligible)
			break
		}
	}
	s.Equal([]eligibility.Stage{
		eligibility.StageEncrypting,
		eligibility.StageEncrypted,
		eligibility.StageSubmitting,
		eligibility.StageDecrypting,
		eligibility.StageDone,
	}, stages)
}
