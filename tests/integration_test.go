// Package tests exercises the assembled application end to end: real router,
// real services, real SQLite database, with only the model server and Redis
// replaced by in-process fakes. No containers are needed.
package tests

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romy/backend/internal/app"
	"romy/backend/internal/config"
)

// fakeModelServer mimics the Ollama-compatible API closely enough for the
// whole pipeline: streamed answers, structured suggestion arrays and
// non-streaming title generation.
func fakeModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Format   string `json:"format"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeChunk := func(content string, done bool) {
			chunk := map[string]any{
				"model":   req.Model,
				"message": map[string]string{"role": "assistant", "content": content},
				"done":    done,
			}
			line, err := json.Marshal(chunk)
			require.NoError(t, err)
			_, _ = w.Write(append(line, '\n'))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		switch {
		case req.Format == "json":
			// Structured suggestion generation: the concatenated content must
			// form a JSON array.
			for _, piece := range []string{
				`[{"action":"Draft an outreach email"},`,
				`{"action":"Research the Acme Foundation"},`,
				`{"action":"Schedule a follow-up call"}]`,
			} {
				writeChunk(piece, false)
			}
			writeChunk("", true)
		case req.Stream:
			writeChunk("The sum ", false)
			writeChunk("is 4.", false)
			writeChunk("", true)
		default:
			// Title generation is the only non-streaming call.
			resp := map[string]any{
				"model":   req.Model,
				"message": map[string]string{"role": "assistant", "content": `"Simple arithmetic"`},
				"done":    true,
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

type testEnv struct {
	baseURL string
	client  *http.Client
}

// newTestEnv wires the full application against a temp database and the fake
// model server. When cloud is true a miniredis instance backs the guest
// limiter with the given daily limit.
func newTestEnv(t *testing.T, cloud bool, dailyLimit int) *testEnv {
	t.Helper()

	llmServer := fakeModelServer(t)
	t.Cleanup(llmServer.Close)

	tmp := t.TempDir()
	cfg := &config.Config{
		AppPort:      0,
		DatabasePath: filepath.Join(tmp, "romy.db"),
		UploadDir:    filepath.Join(tmp, "uploads"),
		PublicURL:    "http://localhost:8000",
		LLMURL:       llmServer.URL,
		MainModel:    "test-model",
		SupportModel: "test-model",
		SystemPrompt: "You are Romy, a donor research assistant.",
		LogLevel:     "ERROR",
	}
	if cloud {
		mr := miniredis.RunT(t)
		cfg.CloudDeployment = true
		cfg.RedisAddr = mr.Addr()
		cfg.GuestDailyLimit = dailyLimit
	}

	application, err := app.NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	server := httptest.NewServer(application.Server.Handler)
	t.Cleanup(server.Close)

	return &testEnv{
		baseURL: server.URL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// streamMessage posts a new message and returns every SSE data payload plus
// the raw body.
func (e *testEnv) streamMessage(t *testing.T, body string) ([]string, string) {
	t.Helper()
	resp, err := e.client.Post(e.baseURL+"/api/v1/chats/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []string
	var raw strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		raw.WriteString(line + "\n")
		if strings.HasPrefix(line, "data: ") {
			events = append(events, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, scanner.Err())
	return events, raw.String()
}

func TestFullChatWorkflow(t *testing.T) {
	env := newTestEnv(t, false, 0)

	// --- Send the first message and read the whole stream. ---
	events, _ := env.streamMessage(t, `{"content": "What is 2+2?"}`)
	require.NotEmpty(t, events)

	var sawDone bool
	var answer strings.Builder
	for _, ev := range events {
		var parsed struct {
			Delta string          `json:"delta"`
			Done  bool            `json:"done"`
			Error string          `json:"error"`
			Part  json.RawMessage `json:"part"`
		}
		require.NoError(t, json.Unmarshal([]byte(ev), &parsed), "event: %s", ev)
		assert.Empty(t, parsed.Error)
		answer.WriteString(parsed.Delta)
		if parsed.Done {
			sawDone = true
		}
	}
	assert.True(t, sawDone, "stream must finish with a done event")
	assert.Equal(t, "The sum is 4.", answer.String())

	// Action items are on by default, so the stream carries suggestion parts.
	joined := strings.Join(events, "\n")
	assert.Contains(t, joined, "data-actionItems")
	assert.Contains(t, joined, "Draft an outreach email")

	// --- The chat is persisted and the title generated in the background. ---
	var chatID string
	require.Eventually(t, func() bool {
		resp, err := env.client.Get(env.baseURL + "/api/v1/chats")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var chats []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&chats); err != nil || len(chats) != 1 {
			return false
		}
		chatID = chats[0].ID
		return chats[0].Title == "Simple arithmetic"
	}, 5*time.Second, 100*time.Millisecond, "title should be generated in the background")

	// --- Fetch the full chat: user turn plus assembled assistant turn. ---
	resp, err := env.client.Get(env.baseURL + "/api/v1/chats/" + chatID)
	require.NoError(t, err)
	fullChatBody, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(fullChatBody), "What is 2+2?")
	assert.Contains(t, string(fullChatBody), "The sum is 4.")

	// --- Continue the conversation in the same chat. ---
	events, _ = env.streamMessage(t, fmt.Sprintf(`{"chat_id": %q, "content": "And 3+3?"}`, chatID))
	assert.Contains(t, strings.Join(events, "\n"), `"done":true`)

	// --- Export as Markdown and as PDF. ---
	resp, err = env.client.Get(env.baseURL + "/api/v1/chats/" + chatID + "/export")
	require.NoError(t, err)
	mdBody, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.Contains(t, string(mdBody), "## You")
	assert.Contains(t, string(mdBody), "What is 2+2?")

	resp, err = env.client.Get(env.baseURL + "/api/v1/chats/" + chatID + "/export?format=pdf")
	require.NoError(t, err)
	pdfBody, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(pdfBody, []byte("%PDF-")))

	// --- Rate a message. ---
	resp, err = env.client.Post(
		env.baseURL+"/api/v1/chats/"+chatID+"/messages/some-message/feedback",
		"application/json",
		strings.NewReader(`{"rating": "up", "comment": "clear answer"}`),
	)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// --- Rename, then delete the chat. ---
	req, err := http.NewRequest(http.MethodPut, env.baseURL+"/api/v1/chats/"+chatID+"/title", strings.NewReader(`{"title": "Renamed"}`))
	require.NoError(t, err)
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, env.baseURL+"/api/v1/chats/"+chatID, nil)
	require.NoError(t, err)
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.client.Get(env.baseURL + "/api/v1/chats/" + chatID)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreferencesRoundTrip(t *testing.T) {
	env := newTestEnv(t, false, 0)

	resp, err := env.client.Get(env.baseURL + "/api/v1/preferences")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "actionItems")

	req, err := http.NewRequest(http.MethodPut, env.baseURL+"/api/v1/preferences", strings.NewReader(`{"suggestions_mode": "off"}`))
	require.NoError(t, err)
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.client.Get(env.baseURL + "/api/v1/preferences")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Contains(t, string(body), `"off"`)
}

func TestGuestRateLimit(t *testing.T) {
	env := newTestEnv(t, true, 2)

	send := func() *http.Response {
		resp, err := env.client.Post(env.baseURL+"/api/v1/chats/messages", "application/json",
			strings.NewReader(`{"content": "hello"}`))
		require.NoError(t, err)
		return resp
	}

	// The first two messages of the day pass.
	for i := 0; i < 2; i++ {
		resp := send()
		_, _ = io.Copy(io.Discard, resp.Body)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode, "message %d should be allowed", i+1)
	}

	// The third is rejected with the quota headers and a JSON body the client
	// can render directly.
	resp := send()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Contains(t, string(body), `"remaining":0`)

	// Other endpoints stay unaffected.
	listResp, err := env.client.Get(env.baseURL + "/api/v1/chats")
	require.NoError(t, err)
	require.NoError(t, listResp.Body.Close())
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
}

func TestUploadLifecycle(t *testing.T) {
	env := newTestEnv(t, false, 0)

	buildBody := func(filename, mediaType, content string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
		h.Set("Content-Type", mediaType)
		dst, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = dst.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		return body, writer.FormDataContentType()
	}

	// Upload a CSV attachment.
	body, contentType := buildBody("donors.csv", "text/csv", "name,amount\nAcme,500\n")
	resp, err := env.client.Post(env.baseURL+"/api/v1/uploads", contentType, body)
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", respBody)

	var uploaded struct {
		Files []struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(respBody, &uploaded))
	require.Len(t, uploaded.Files, 1)
	require.NotEmpty(t, uploaded.Files[0].Key)

	// The stored file is served back by the static file route.
	resp, err = env.client.Get(env.baseURL + "/uploads/" + uploaded.Files[0].Key)
	require.NoError(t, err)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "name,amount\nAcme,500\n", string(served))

	// An unsupported type is rejected with 415 and the filename in the body.
	body, contentType = buildBody("movie.mp4", "video/mp4", "not really video")
	resp, err = env.client.Post(env.baseURL+"/api/v1/uploads", contentType, body)
	require.NoError(t, err)
	respBody, err = io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Contains(t, string(respBody), "movie.mp4")

	// Deleting the upload removes the stored file.
	req, err := http.NewRequest(http.MethodDelete,
		env.baseURL+"/api/v1/uploads/"+uploaded.Files[0].ID+"?key="+uploaded.Files[0].Key, nil)
	require.NoError(t, err)
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.client.Get(env.baseURL + "/uploads/" + uploaded.Files[0].Key)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
