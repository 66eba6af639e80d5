// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/labchat/internal/credential"
	"github.com/jeranaias/labchat/internal/openai"
	"github.com/jeranaias/labchat/internal/rules"
	"github.com/jeranaias/labchat/internal/session"
	"github.com/jeranaias/labchat/internal/vectorstore"
)

// fakeAPI is an httptest server speaking just enough of the remote API
// for page tests. It records request bodies per path.
type fakeAPI struct {
	server *httptest.Server

	mu      sync.Mutex
	calls   []string
	bodies  map[string][]string
	failAll bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{bodies: make(map[string][]string)}
	mux := http.NewServeMux()

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if f.reject(w, r) {
			return
		}
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[{"message":{"role":"assistant","content":"completion answer"}}]}`)
	})
	mux.HandleFunc("/responses", func(w http.ResponseWriter, r *http.Request) {
		if f.reject(w, r) {
			return
		}
		fmt.Fprint(w, `{"id":"resp-1","output_text":"response answer"}`)
	})
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		if f.reject(w, r) {
			return
		}
		fmt.Fprint(w, `{"id":"file-1","filename":"doc.pdf","purpose":"assistants"}`)
	})
	mux.HandleFunc("/vector_stores", func(w http.ResponseWriter, r *http.Request) {
		if f.reject(w, r) {
			return
		}
		fmt.Fprint(w, `{"id":"vs-1","name":"index"}`)
	})
	mux.HandleFunc("/vector_stores/vs-1/files", func(w http.ResponseWriter, r *http.Request) {
		if f.reject(w, r) {
			return
		}
		fmt.Fprint(w, `{"id":"file-1"}`)
	})
	mux.HandleFunc("/vector_stores/vs-1", func(w http.ResponseWriter, r *http.Request) {
		if f.reject(w, r) {
			return
		}
		fmt.Fprint(w, `{"deleted":true}`)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// reject records the call and optionally fails it.
func (f *fakeAPI) reject(w http.ResponseWriter, r *http.Request) bool {
	var body strings.Builder
	if r.Body != nil {
		buf := make([]byte, 64*1024)
		for {
			n, err := r.Body.Read(buf)
			body.Write(buf[:n])
			if err != nil {
				break
			}
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], body.String())
	fail := f.failAll
	f.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":"server_error","message":"boom"}}`)
		return true
	}
	return false
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) lastBody(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	bodies := f.bodies[path]
	if len(bodies) == 0 {
		return ""
	}
	return bodies[len(bodies)-1]
}

func (f *fakeAPI) setFail(fail bool) {
	f.mu.Lock()
	f.failAll = fail
	f.mu.Unlock()
}

// newTestSession wires a session against the fake API.
func newTestSession(t *testing.T, f *fakeAPI) (*openai.Client, *session.Session) {
	t.Helper()
	client := openai.NewClient().WithBaseURL(f.server.URL).WithTimeout(5 * time.Second)
	reg := session.NewRegistry(vectorstore.NewOpenAIRemote(client), 0, time.Minute)
	sess := reg.Create()
	sess.Credential.Set("sk-test")
	return client, sess
}

func TestQAPage_CachesIdenticalQuestions(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	page := NewQAPage(client)

	first, err := page.Ask(context.Background(), sess, "what is Go?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if first != "completion answer" {
		t.Errorf("answer = %q", first)
	}

	second, err := page.Ask(context.Background(), sess, "what is Go?")
	if err != nil {
		t.Fatalf("Ask (cached): %v", err)
	}
	if second != first {
		t.Errorf("cached answer = %q, want %q", second, first)
	}
	if got := f.callCount(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestQAPage_NFCNormalizedCacheKey(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	page := NewQAPage(client)

	question := "한국어 질문"
	if _, err := page.Ask(context.Background(), sess, norm.NFC.String(question)); err != nil {
		t.Fatal(err)
	}
	if _, err := page.Ask(context.Background(), sess, norm.NFD.String(question)); err != nil {
		t.Fatal(err)
	}
	if got := f.callCount(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (normalization forms must share a key)", got)
	}
}

func TestQAPage_FailureNotCached(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	page := NewQAPage(client)

	f.setFail(true)
	if _, err := page.Ask(context.Background(), sess, "q"); err == nil {
		t.Fatal("expected remote failure")
	}
	if sess.Cache.Len() != 0 {
		t.Error("failed answer must not be cached")
	}

	f.setFail(false)
	answer, err := page.Ask(context.Background(), sess, "q")
	if err != nil {
		t.Fatalf("Ask after recovery: %v", err)
	}
	if answer != "completion answer" {
		t.Errorf("answer = %q", answer)
	}
}

func TestPageGuards(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	src := rules.NewSource("")

	allPages := []Page{
		NewQAPage(client),
		NewChatPage(client),
		NewRulesPage(client, src),
		NewDocQAPage(),
	}

	for _, p := range allPages {
		if _, err := p.Ask(context.Background(), sess, "   \n\t "); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("%s: blank input err = %v, want ErrEmptyInput", p.Name(), err)
		}
	}

	sess.Credential.Clear()
	for _, p := range allPages {
		if _, err := p.Ask(context.Background(), sess, "question"); !errors.Is(err, credential.ErrMissingCredential) {
			t.Errorf("%s: missing credential err = %v", p.Name(), err)
		}
	}

	if got := f.callCount(); got != 0 {
		t.Errorf("guard failures made %d upstream calls, want 0", got)
	}
}

func TestChatPage_CommitsBothTurnsOnSuccess(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	page := NewChatPage(client)

	answer, err := page.Ask(context.Background(), sess, "안녕하세요")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "response answer" {
		t.Errorf("answer = %q", answer)
	}
	if sess.Conversation.Len() != 2 {
		t.Fatalf("turn count = %d, want 2", sess.Conversation.Len())
	}

	var req openai.ResponseRequest
	if err := json.Unmarshal([]byte(f.lastBody("/responses")), &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if !strings.Contains(req.Input, "사용자: 안녕하세요") {
		t.Errorf("prompt missing user turn: %q", req.Input)
	}
	if !strings.HasSuffix(req.Input, "어시스턴트:") {
		t.Errorf("prompt missing trailing assistant cue: %q", req.Input)
	}
}

func TestChatPage_FailureLeavesLogUntouched(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	page := NewChatPage(client)

	if _, err := page.Ask(context.Background(), sess, "first"); err != nil {
		t.Fatal(err)
	}

	f.setFail(true)
	if _, err := page.Ask(context.Background(), sess, "second"); err == nil {
		t.Fatal("expected remote failure")
	}
	if got := sess.Conversation.Len(); got != 2 {
		t.Errorf("turn count after failure = %d, want 2 (no partial writes)", got)
	}

	// The failed turn is absent from the next prompt.
	f.setFail(false)
	if _, err := page.Ask(context.Background(), sess, "third"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(f.lastBody("/responses"), "second") {
		t.Error("failed turn leaked into a later prompt")
	}
}

func TestChatPage_Clear(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	page := NewChatPage(client)

	if _, err := page.Ask(context.Background(), sess, "hello"); err != nil {
		t.Fatal(err)
	}
	page.Clear(sess)
	if sess.Conversation.Len() != 0 {
		t.Error("Clear must empty the log")
	}
}

func TestRulesPage_GroundedPrompt(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestSession(t, f)
	src := rules.NewSource("")
	src.SetText("휴관일: 매주 일요일")
	page := NewRulesPage(client, src)

	answer, err := page.Ask(context.Background(), sess, "일요일에 여나요?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "response answer" {
		t.Errorf("answer = %q", answer)
	}

	body := f.lastBody("/responses")
	for _, want := range []string{"휴관일: 매주 일요일", "일요일에 여나요?", "규정집에 없는 내용입니다"} {
		if !strings.Contains(body, want) {
			t.Errorf("request missing %q", want)
		}
	}
}

func TestDocQAPage_Lifecycle(t *testing.T) {
	f := newFakeAPI(t)
	_, sess := newTestSession(t, f)
	page := NewDocQAPage()

	// Query before upload fails without any remote call.
	if _, err := page.Ask(context.Background(), sess, "question"); !errors.Is(err, vectorstore.ErrNoIndex) {
		t.Fatalf("query before upload err = %v", err)
	}

	if err := page.Upload(context.Background(), sess, "paper.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if sess.Index.State() != vectorstore.StateReady {
		t.Fatalf("state after upload = %v", sess.Index.State())
	}

	answer, err := page.Ask(context.Background(), sess, "what does it say?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "response answer" {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(f.lastBody("/responses"), `"vector_store_ids":["vs-1"]`) {
		t.Errorf("query not scoped to the index: %s", f.lastBody("/responses"))
	}

	if err := page.Destroy(context.Background(), sess); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if sess.Index.State() != vectorstore.StateEmpty {
		t.Errorf("state after destroy = %v", sess.Index.State())
	}
}

func TestDocQAPage_UploadGuards(t *testing.T) {
	f := newFakeAPI(t)
	_, sess := newTestSession(t, f)
	page := NewDocQAPage()

	if err := page.Upload(context.Background(), sess, "notes.txt", []byte("data")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("non-pdf err = %v", err)
	}
	if err := page.Upload(context.Background(), sess, "empty.pdf", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty doc err = %v", err)
	}
	if got := f.callCount(); got != 0 {
		t.Errorf("guard failures made %d upstream calls", got)
	}

	if err := page.Upload(context.Background(), sess, "UPPER.PDF", []byte("%PDF")); err != nil {
		t.Errorf("uppercase extension should be accepted: %v", err)
	}
}

func TestDocQAPage_SecondUploadRejected(t *testing.T) {
	f := newFakeAPI(t)
	_, sess := newTestSession(t, f)
	page := NewDocQAPage()

	if err := page.Upload(context.Background(), sess, "a.pdf", []byte("%PDF")); err != nil {
		t.Fatal(err)
	}
	before := f.callCount()

	err := page.Upload(context.Background(), sess, "b.pdf", []byte("%PDF"))
	if !errors.Is(err, vectorstore.ErrIndexActive) {
		t.Fatalf("second upload err = %v, want ErrIndexActive", err)
	}
	if f.callCount() != before {
		t.Error("rejected upload must not reach the remote")
	}
}

func TestRouter_Dispatch(t *testing.T) {
	f := newFakeAPI(t)
	client, _ := newTestSession(t, f)
	src := rules.NewSource("")
	router := NewRouter(NewQAPage(client), NewChatPage(client), NewRulesPage(client, src), NewDocQAPage())

	for _, sel := range router.Selectors() {
		p, err := router.Dispatch(sel)
		if err != nil {
			t.Errorf("Dispatch(%q): %v", sel, err)
		}
		if p == nil {
			t.Errorf("Dispatch(%q) returned nil page", sel)
		}
	}

	if _, err := router.Dispatch("settings"); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("unknown selector err = %v", err)
	}
}
