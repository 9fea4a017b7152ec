package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zacy-Sokach/ChatSim/internal/api"
	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/persona"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reqs  []api.ChatRequest
	reply string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, req api.ChatRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func testPicker() *persona.Picker {
	return persona.NewPicker(persona.Pools{
		Usernames:     []string{"LagLord"},
		Colors:        []string{"#1E90FF"},
		Personalities: []string{"You're a hype fan."},
	}, 3)
}

func TestGenerateBuildsSystemAndUserMessages(t *testing.T) {
	fake := &fakeCompleter{reply: "  W streamer  "}
	gen := New(fake, testPicker(), Options{Model: "m", Temperature: 0.9}, zerolog.Nop())

	history := []chat.Line{
		chat.NewLine(chat.SourceGenerated, "PixelPirate", "", "nice bug"),
		chat.NewLine(chat.SourceModerator, chat.ModeratorSpeaker, "", "be nice"),
	}

	text, err := gen.Generate(context.Background(), Request{History: history, Username: "LagLord"})
	require.NoError(t, err)
	assert.Equal(t, "W streamer", text)

	require.Len(t, fake.reqs, 1)
	req := fake.reqs[0]
	assert.Equal(t, "m", req.Model)
	assert.False(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Text(), "You're a hype fan.")
	assert.Contains(t, req.Messages[0].Text(), "<120 chars")
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Text(), "PixelPirate: nice bug\nMODERATOR: be nice")
}

func TestGenerateEmptyHistoryPlaceholder(t *testing.T) {
	fake := &fakeCompleter{reply: "first"}
	gen := New(fake, testPicker(), Options{}, zerolog.Nop())

	_, err := gen.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Contains(t, fake.reqs[0].Messages[1].Text(), "(no chat yet)")
	assert.Equal(t, api.DefaultModel, fake.reqs[0].Model)
}

func TestGenerateFoldsErrorsIntoText(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("connection refused")}
	gen := New(fake, testPicker(), Options{}, zerolog.Nop())

	text, err := gen.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "(error calling LLM: connection refused)", text)
}

func TestGenerateWithImageUsesMultiPartContent(t *testing.T) {
	fake := &fakeCompleter{reply: "that code is mid"}
	gen := New(fake, testPicker(), Options{}, zerolog.Nop())

	_, err := gen.Generate(context.Background(), Request{Image: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	var parts []api.ContentPart
	require.NoError(t, json.Unmarshal(fake.reqs[0].Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
}

func TestGenerateAgainstHTTPServer(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"KEKW"}}]}`))
	}))
	defer server.Close()

	client := api.NewClient(api.Options{URL: server.URL})
	gen := New(client, testPicker(), Options{Model: "google/gemma-3-12b-instruct", Temperature: 0.9}, zerolog.Nop())

	text, err := gen.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "KEKW", text)
	assert.Equal(t, false, body["stream"])
}

func TestGenerateMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":`))
	}))
	defer server.Close()

	gen := New(api.NewClient(api.Options{URL: server.URL}), testPicker(), Options{}, zerolog.Nop())

	text, err := gen.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Contains(t, text, "(error calling LLM: ")
}
