package extract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/entity"
	"github.com/duclunn/form-extractor/internal/extract"
)

func sampleFile() *entity.UploadedFile {
	return &entity.UploadedFile{Name: "hoa-don.png", MIME: "image/png", Data: []byte("fake image bytes")}
}

func TestExtractDataWrapper(t *testing.T) {
	var gotMode, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotMode = r.FormValue("mode")
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"doc_type":"Invoice","unitprice":500000},{"doc_type":"Import"}]}`))
	}))
	defer srv.Close()

	c := extract.NewClient(srv.Client(), nil)
	records, err := c.Extract(context.Background(), srv.URL+"/extract", sampleFile(), constants.ModeStandard)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "standard", gotMode)
	assert.Equal(t, "hoa-don.png", gotFilename)
	assert.Equal(t, "Invoice", records[0]["doc_type"])
}

func TestExtractBareShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"doc_type":"Export"}]`, want: 1},
		{name: "bare object", body: `{"doc_type":"Export"}`, want: 1},
		{name: "single object under data", body: `{"data":{"doc_type":"Export"}}`, want: 1},
		{name: "empty data array", body: `{"data":[]}`, want: 0},
		{name: "non-object elements skipped", body: `{"data":[{"doc_type":"Export"},"noise",42]}`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := extract.NewClient(srv.Client(), nil)
			records, err := c.Extract(context.Background(), srv.URL+"/extract", sampleFile(), constants.ModeStandard)
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestExtractNon2xxIsPerFileError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Gemini API Error", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := extract.NewClient(srv.Client(), nil)
	_, err := c.Extract(context.Background(), srv.URL+"/extract", sampleFile(), constants.ModeStandard)
	require.Error(t, err)
	assert.NotErrorIs(t, err, extract.ErrUnreachable)
	assert.Contains(t, err.Error(), "502")
}

func TestExtractTransportFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := extract.NewClient(nil, nil)
	_, err := c.Extract(context.Background(), srv.URL+"/extract", sampleFile(), constants.ModeStandard)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrUnreachable)
}

func TestExtractMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := extract.NewClient(srv.Client(), nil)
	_, err := c.Extract(context.Background(), srv.URL+"/extract", sampleFile(), constants.ModeStandard)
	require.Error(t, err)
	assert.NotErrorIs(t, err, extract.ErrUnreachable)
}

func TestHealthy(t *testing.T) {
	var probedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probedPath = r.URL.Path
		w.WriteHeader(http.StatusTeapot) // any resolved response counts
	}))
	defer srv.Close()

	c := extract.NewClient(srv.Client(), nil)
	assert.True(t, c.Healthy(context.Background(), srv.URL+"/extract"))
	assert.Equal(t, "/", probedPath, "probe hits the root, not /extract")

	srv.Close()
	assert.False(t, c.Healthy(context.Background(), srv.URL+"/extract"))
}
