package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stardustx8/legalchat/internal/model"
)

type fakeAsker struct {
	answer       *model.Answer
	err          error
	lastQuestion string
}

func (f *fakeAsker) Ask(_ context.Context, question string) (*model.Answer, error) {
	f.lastQuestion = question
	return f.answer, f.err
}

func testAnswer() *model.Answer {
	return &model.Answer{
		CountryHeader: "# Country Detection\n\n...",
		RefinedAnswer: "refined text",
	}
}

func TestHandleAsk_QueryParam(t *testing.T) {
	f := &fakeAsker{answer: testAnswer()}
	srv := httptest.NewServer(newRouter(f))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ask?question=knives+in+CH")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got model.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "refined text", got.RefinedAnswer)
	assert.Equal(t, "knives in CH", f.lastQuestion)
}

func TestHandleAsk_JSONBody(t *testing.T) {
	f := &fakeAsker{answer: testAnswer()}
	srv := httptest.NewServer(newRouter(f))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/ask", "application/json",
		strings.NewReader(`{"question": "knives in Switzerland"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "knives in Switzerland", f.lastQuestion)
}

func TestHandleAsk_MissingQuestion(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeAsker{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ask")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAsk_PingBypassesPipeline(t *testing.T) {
	f := &fakeAsker{err: eris.New("pipeline must not run")}
	srv := httptest.NewServer(newRouter(f))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ask?ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, f.lastQuestion)
}

func TestHandleAsk_PipelineErrorReturns500WithErrorID(t *testing.T) {
	f := &fakeAsker{err: eris.New("refine failed")}
	srv := httptest.NewServer(newRouter(f))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ask?question=knives")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error_id"])
	assert.NotContains(t, body["error"], "refine failed", "internal details stay out of the response")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeAsker{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
