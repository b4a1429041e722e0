package s3

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NewMockForTests returns a Store whose HTTP client talks to an in-process
// fake bucket. It covers HEAD, GET, PUT, DELETE and ListObjectsV2.
func NewMockForTests() *Store {
	fake := &fakeBucket{objects: make(map[string]fakeObject)}
	store, err := New(context.Background(), Config{
		Bucket:          "bgstats-test",
		Region:          defaultRegion,
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		panic(fmt.Sprintf("mock s3 store: %v", err))
	}
	return store
}

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Path style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req.URL.Query().Get("prefix")), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			if body, err = decodeAWSChunked(body); err != nil {
				return respond(http.StatusBadRequest, nil, nil), nil
			}
		}
		md := map[string]string{}
		for name, values := range req.Header {
			lower := strings.ToLower(name)
			if strings.HasPrefix(lower, "x-amz-meta-") && len(values) > 0 {
				md[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: md, modified: time.Now().UTC()}
		return respond(http.StatusOK, http.Header{"Etag": {etag(body)}}, nil), nil
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {etag(obj.body)},
			"Last-Modified":  {obj.modified.Format(http.TimeFormat)},
		}
		for k, v := range obj.metadata {
			h.Set("X-Amz-Meta-"+k, v)
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, h, nil), nil
		}
		return respond(http.StatusOK, h, obj.body), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (f *fakeBucket) list(prefix string) *http.Response {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		obj := f.objects[k]
		b.WriteString("<Contents><Key>")
		_ = xml.EscapeText(&b, []byte(k))
		fmt.Fprintf(&b, "</Key><Size>%d</Size><ETag>%s</ETag><LastModified>%s</LastModified></Contents>",
			len(obj.body), etag(obj.body), obj.modified.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "<KeyCount>%d</KeyCount></ListBucketResult>", len(keys))
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, b.Bytes())
}

func respond(status int, h http.Header, body []byte) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func etag(body []byte) string {
	sum := md5.Sum(body) //nolint:gosec
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// decodeAWSChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n"
// repeated until a zero-length chunk, optionally followed by trailers.
func decodeAWSChunked(raw []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseInt(line, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, err
		}
		if _, err := r.Discard(2); err != nil {
			return nil, err
		}
	}
}
