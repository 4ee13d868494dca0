package webapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leinardi/safemode-monitoring/internal/webapi"
)

func TestWriteError(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	webapi.WriteError(recorder, http.StatusForbidden, "Insufficient privileges")

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status: got %d want %d", recorder.Code, http.StatusForbidden)
	}

	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type: got %q", got)
	}

	var body webapi.ErrorBody
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(body.Errors) != 1 || body.Errors[0].Msg != "Insufficient privileges" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
