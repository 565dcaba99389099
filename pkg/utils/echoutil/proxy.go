package echoutil

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CopyHeader adds every header in src to dest, skipping the names in except
// (case-insensitive).
func CopyHeader(dest *http.Header, src *http.Header, except ...string) {
	exc := map[string]interface{}{}
	for _, x := range except {
		exc[strings.ToLower(x)] = nil
	}

	for k, vs := range *src {
		if _, ok := exc[strings.ToLower(k)]; ok {
			continue
		}
		for _, v := range vs {
			dest.Add(k, v)
		}
	}
}

// CopyRequest replays src against dest, carrying method, body and headers
// (except Host). The caller owns the returned response body.
func CopyRequest(
	ctx context.Context,
	dest string,
	src *http.Request,
) (*http.Response, error) {
	client := http.Client{}

	req, err := http.NewRequestWithContext(ctx, src.Method, dest, src.Body)
	if err != nil {
		return nil, err
	}
	CopyHeader(&req.Header, &src.Header, "host")
	return client.Do(req)
}

// CopyResponse writes resp out through the echo context: status, headers
// and body as they are.
func CopyResponse(cp *echo.Context, resp *http.Response) error {
	c := *cp

	dstResp := c.Response()
	dstHeader := dstResp.Header()
	CopyHeader(&dstHeader, &resp.Header)

	dstResp.WriteHeader(resp.StatusCode)
	_, err := io.Copy(dstResp.Writer, resp.Body)
	return err
}
