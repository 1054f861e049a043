package gateway

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "invalid api key",
			code:     400,
			body:     `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantKind: KindConfig,
			wantMsg:  "مفتاح API غير صالح",
		},
		{
			name:     "resource exhausted",
			code:     429,
			body:     `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			wantKind: KindQuota,
			wantMsg:  "تجاوزت حصة الاستخدام",
		},
		{
			name:     "insufficient quota in message",
			code:     400,
			body:     `{"error":{"code":400,"message":"insufficient_quota for this project","status":"FAILED_PRECONDITION"}}`,
			wantKind: KindQuota,
		},
		{
			name:     "insufficient balance",
			code:     402,
			body:     `{"error":{"code":402,"message":"Insufficient Balance","status":"FAILED_PRECONDITION"}}`,
			wantKind: KindQuota,
		},
		{
			name:     "billed users only",
			code:     403,
			body:     `{"error":{"code":403,"message":"Imagen API is only accessible to billed users at this time.","status":"PERMISSION_DENIED"}}`,
			wantKind: KindQuota,
			wantMsg:  "مفوترًا",
		},
		{
			name:     "permission denied",
			code:     403,
			body:     `{"error":{"code":403,"message":"Permission denied on resource.","status":"PERMISSION_DENIED"}}`,
			wantKind: KindConfig,
		},
		{
			name:     "other structured error",
			code:     500,
			body:     `{"error":{"code":500,"message":"Internal error","status":"INTERNAL"}}`,
			wantKind: KindTransient,
			wantMsg:  "INTERNAL",
		},
		{
			name:     "bare 429",
			code:     429,
			body:     "Too Many Requests",
			wantKind: KindQuota,
		},
		{
			name:     "unparseable body",
			code:     502,
			body:     "<html>Bad Gateway</html>",
			wantKind: KindTransient,
			wantMsg:  "حدث خطأ أثناء الاختبار",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gerr := classifyStatus(tt.code, []byte(tt.body), "الاختبار")
			if gerr.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", gerr.Kind, tt.wantKind)
			}
			if tt.wantMsg != "" && !strings.Contains(gerr.Message, tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", gerr.Message, tt.wantMsg)
			}
			if gerr.Err == nil {
				t.Error("classified error lost its cause")
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	gerr := newError(KindPolicy, "تم حظر الطلب.", errors.New("SAFETY"))
	if got := UserMessage(gerr); got != "تم حظر الطلب." {
		t.Errorf("UserMessage = %q", got)
	}

	plain := errors.New("dial tcp: timeout")
	if got := UserMessage(plain); !strings.Contains(got, "حدث خطأ غير متوقع") {
		t.Errorf("UserMessage for plain error = %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	gerr := newError(KindTransient, "فشل.", cause)
	if !errors.Is(gerr, cause) {
		t.Error("errors.Is does not reach the cause")
	}
}

func TestNoAPIKeyIsConfig(t *testing.T) {
	gerr := errNoAPIKey()
	if gerr.Kind != KindConfig {
		t.Errorf("kind = %q", gerr.Kind)
	}
	if !strings.Contains(gerr.Message, "Google Gemini API") {
		t.Errorf("message = %q", gerr.Message)
	}
}
