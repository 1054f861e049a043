package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mzassist/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return NewClient(cfg)
}

func textResponse(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			},
		}},
		"usageMetadata": map[string]int{"totalTokenCount": 42},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestConverseReturnsModelText(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Write([]byte(textResponse("مرحباً بك!")))
	})

	turns := []types.Turn{{ID: "1", Role: types.RoleUser, Parts: []types.Part{types.TextPart("مرحبا")}}}
	result, err := client.Converse(context.Background(), turns, types.ModeDefault)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if result.Text != "مرحباً بك!" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Debug.Provider != providerName || result.Debug.TotalTokens != 42 {
		t.Errorf("debug = %+v", result.Debug)
	}
	if !strings.Contains(gotPath, "gemini-2.5-flash:generateContent") {
		t.Errorf("path = %q", gotPath)
	}
}

func TestConverseExcludesGreetingAndErrorTurns(t *testing.T) {
	var gotReq generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(textResponse("رد")))
	})

	turns := []types.Turn{
		{ID: GreetingTurnID, Role: types.RoleModel, Parts: []types.Part{types.TextPart("أهلاً")}},
		{ID: "2", Role: types.RoleUser, Parts: []types.Part{types.TextPart("سؤال")}},
		{ID: "3", Role: types.RoleError, Parts: []types.Part{types.TextPart("خطأ سابق")}},
		{ID: "4", Role: types.RoleUser, Parts: []types.Part{types.TextPart("سؤال آخر")}},
	}
	if _, err := client.Converse(context.Background(), turns, types.ModeDefault); err != nil {
		t.Fatalf("Converse: %v", err)
	}

	if len(gotReq.Contents) != 2 {
		t.Fatalf("contents = %d, want 2", len(gotReq.Contents))
	}
	for _, c := range gotReq.Contents {
		if c.Role != "user" {
			t.Errorf("unexpected role %q in wire contents", c.Role)
		}
	}
}

func TestConverseQuickResponseDisablesThinking(t *testing.T) {
	var gotReq generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(textResponse("رد سريع")))
	})

	turns := []types.Turn{{ID: "1", Role: types.RoleUser, Parts: []types.Part{types.TextPart("س")}}}
	if _, err := client.Converse(context.Background(), turns, types.ModeQuickResponse); err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.ThinkingConfig == nil {
		t.Fatal("thinking config not set in quick-response mode")
	}
	if *gotReq.GenerationConfig.ThinkingConfig.ThinkingBudget != 0 {
		t.Errorf("thinking budget = %d", *gotReq.GenerationConfig.ThinkingConfig.ThinkingBudget)
	}
}

func TestConverseSearchModeAppendsSources(t *testing.T) {
	var gotReq generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "الإجابة"}},
				},
				"groundingMetadata": map[string]interface{}{
					"groundingChunks": []map[string]interface{}{
						{"web": map[string]string{"uri": "https://a.example", "title": "Source A"}},
						{"web": map[string]string{"uri": "https://a.example", "title": "Duplicate A"}},
						{"web": map[string]string{"uri": "https://b.example", "title": "Source B"}},
						{"web": map[string]string{"uri": "", "title": "No URI"}},
					},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	turns := []types.Turn{{ID: "1", Role: types.RoleUser, Parts: []types.Part{types.TextPart("ابحث")}}}
	result, err := client.Converse(context.Background(), turns, types.ModeGoogleSearch)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}

	if len(gotReq.Tools) != 1 || gotReq.Tools[0].GoogleSearch == nil {
		t.Error("google search tool not requested")
	}
	if len(result.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(result.Sources))
	}
	if result.Sources[0].Title != "Source A" {
		t.Errorf("first title = %q, want first-seen title", result.Sources[0].Title)
	}
	if !strings.Contains(result.Text, "**المصادر:**") {
		t.Errorf("text missing sources block: %q", result.Text)
	}
	if !strings.Contains(result.Text, "[Source B](https://b.example)") {
		t.Errorf("text missing markdown link: %q", result.Text)
	}
}

func TestConverseQuotaError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	turns := []types.Turn{{ID: "1", Role: types.RoleUser, Parts: []types.Part{types.TextPart("س")}}}
	_, err := client.Converse(context.Background(), turns, types.ModeDefault)
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if gerr.Kind != KindQuota {
		t.Errorf("kind = %q, want quota", gerr.Kind)
	}
}

func TestConverseBlockedPrompt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	turns := []types.Turn{{ID: "1", Role: types.RoleUser, Parts: []types.Part{types.TextPart("س")}}}
	_, err := client.Converse(context.Background(), turns, types.ModeDefault)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindPolicy {
		t.Fatalf("err = %v, want policy error", err)
	}
}

func TestNoAPIKeyFailsWithoutRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	client.apiKey = ""

	turns := []types.Turn{{ID: "1", Role: types.RoleUser, Parts: []types.Part{types.TextPart("س")}}}
	_, err := client.Converse(context.Background(), turns, types.ModeDefault)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindConfig {
		t.Fatalf("err = %v, want config error", err)
	}
	if called {
		t.Error("request sent despite missing key")
	}
}

func TestGenerateImagesReturnsDataURLs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "imagen-4.0-generate-001:predict") {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req predictRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Parameters.SampleCount != 2 || req.Parameters.AspectRatio != "16:9" {
			t.Errorf("parameters = %+v", req.Parameters)
		}
		w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"QQ=="},{"bytesBase64Encoded":"Qg=="}]}`))
	})

	images, err := client.GenerateImages(context.Background(), "غروب", 2, AspectLandscape)
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("images = %d", len(images))
	}
	if images[0] != "data:image/jpeg;base64,QQ==" {
		t.Errorf("image[0] = %q", images[0])
	}
}

func TestGenerateImagesValidatesInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	if _, err := client.GenerateImages(context.Background(), "x", 5, AspectSquare); err == nil {
		t.Error("count 5 accepted")
	}
	if _, err := client.GenerateImages(context.Background(), "x", 1, AspectRatio("2:1")); err == nil {
		t.Error("unknown aspect ratio accepted")
	}
}

func TestEditImageSafetyBlock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY","content":{"parts":[]}}]}`))
	})

	_, err := client.EditImage(context.Background(), types.InlineImage{Data: "AA", MIMEType: "image/png"}, "عدل")
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindPolicy {
		t.Fatalf("err = %v, want policy error", err)
	}
}

func TestVideoOperationLifecycle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, ":predictLongRunning"):
			w.Write([]byte(`{"name":"operations/vid-1","done":false}`))
		case strings.Contains(r.URL.Path, "operations/vid-1"):
			w.Write([]byte(`{"name":"operations/vid-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files.example/video.mp4"}}]}}}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	op, err := client.GenerateVideo(context.Background(), "قطة", nil)
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if op.Name != "operations/vid-1" || op.Done {
		t.Fatalf("op = %+v", op)
	}

	updated, err := client.PollVideoStatus(context.Background(), op)
	if err != nil {
		t.Fatalf("PollVideoStatus: %v", err)
	}
	uri, ok := updated.Artifact()
	if !ok || uri != "https://files.example/video.mp4" {
		t.Fatalf("artifact = %q, ok = %v", uri, ok)
	}
	if updated.Err() != nil {
		t.Errorf("Err = %v", updated.Err())
	}
}

func TestVideoOperationFailure(t *testing.T) {
	op := &VideoOperation{Name: "operations/x", Done: true, Failure: "internal error"}
	if _, ok := op.Artifact(); ok {
		t.Error("failed operation reports artifact")
	}
	if op.Err() == nil {
		t.Error("failed operation reports no error")
	}

	noResult := &VideoOperation{Name: "operations/y", Done: true}
	if noResult.Err() == nil {
		t.Error("done operation without artifact reports no error")
	}
}

func TestDownloadVideoAppendsKey(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	data, err := client.DownloadVideo(context.Background(), srv.URL+"/files/video.mp4?alt=media")
	if err != nil {
		t.Fatalf("DownloadVideo: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("data = %q", data)
	}
	if !strings.Contains(gotQuery, "alt=media") || !strings.Contains(gotQuery, "key=test-key") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestGenerateQuizParsesSchema(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Error("schema-constrained request missing JSON mime type")
		}
		w.Write([]byte(textResponse(`[{"question":"ما عاصمة فرنسا؟","options":["باريس","لندن"],"answer":"باريس"}]`)))
	})

	quiz, err := client.GenerateQuiz(context.Background(), "نص عن فرنسا", types.QuizMultipleChoice, 1)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(quiz) != 1 || quiz[0].Answer != "باريس" {
		t.Errorf("quiz = %+v", quiz)
	}
}

func TestGenerateQuizMalformedOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textResponse("هذا ليس JSON")))
	})

	_, err := client.GenerateQuiz(context.Background(), "نص", types.QuizTrueFalse, 3)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindMalformed {
		t.Fatalf("err = %v, want malformed error", err)
	}
}

func TestGenerateWebsiteStripsCodeFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textResponse("```html\n<html lang=\"ar\" dir=\"rtl\"></html>\n```")))
	})

	code, err := client.GenerateWebsite(context.Background(), "متجر", types.StackHTMLCSS, "Arabic")
	if err != nil {
		t.Fatalf("GenerateWebsite: %v", err)
	}
	if strings.Contains(code, "```") {
		t.Errorf("code fence survived: %q", code)
	}
	if !strings.Contains(code, `dir="rtl"`) {
		t.Errorf("code = %q", code)
	}
}
