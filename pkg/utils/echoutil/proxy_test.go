package echoutil_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	httptestutil "github.com/datakin/workbench/internal/testutils/http"
	"github.com/datakin/workbench/pkg/utils/echoutil"
)

func TestCopyHeader(t *testing.T) {
	t.Run("it copies every value, skipping excepted names case-insensitively", func(t *testing.T) {
		src := http.Header{}
		src.Add("Content-Type", "application/json")
		src.Add("X-Many", "a")
		src.Add("X-Many", "b")
		src.Add("Authorization", "Bearer secret")

		dest := http.Header{}
		echoutil.CopyHeader(&dest, &src, "authorization")

		if dest.Get("Content-Type") != "application/json" {
			t.Errorf("unmatch Content-Type: %s", dest.Get("Content-Type"))
		}
		if vs := dest.Values("X-Many"); len(vs) != 2 {
			t.Errorf("unmatch X-Many: %v", vs)
		}
		if dest.Get("Authorization") != "" {
			t.Error("excepted header is copied")
		}
	})
}

func TestCopyRequest(t *testing.T) {
	t.Run("it replays method, headers and body against the destination", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("unmatch method: %s", r.Method)
			}
			if r.Header.Get("X-Probe") != "yes" {
				t.Errorf("unmatch header: %s", r.Header.Get("X-Probe"))
			}
			got, _ := io.ReadAll(r.Body)
			if string(got) != `{"name":"x"}` {
				t.Errorf("unmatch body: %s", string(got))
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("done"))
		}))
		defer ts.Close()

		src := httptest.NewRequest(
			http.MethodPost, "/anything", strings.NewReader(`{"name":"x"}`),
		)
		src.Header.Set("X-Probe", "yes")

		resp, err := echoutil.CopyRequest(src.Context(), ts.URL, src)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Errorf("unmatch status: %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "done" {
			t.Errorf("unmatch response body: %s", string(body))
		}
	})
}

func TestCopyResponse(t *testing.T) {
	t.Run("it writes status, headers and body through the context", func(t *testing.T) {
		e := echo.New()
		c, rec := httptestutil.Get(e, "/")

		resp := &http.Response{
			StatusCode: http.StatusAccepted,
			Header:     http.Header{"X-From-Upstream": {"1"}},
			Body:       io.NopCloser(strings.NewReader("pass through")),
		}

		if err := echoutil.CopyResponse(&c, resp); err != nil {
			t.Fatal(err)
		}

		if rec.Code != http.StatusAccepted {
			t.Errorf("unmatch status: %d", rec.Code)
		}
		if rec.Header().Get("X-From-Upstream") != "1" {
			t.Error("upstream header is not copied")
		}
		if rec.Body.String() != "pass through" {
			t.Errorf("unmatch body: %s", rec.Body.String())
		}
	})
}
