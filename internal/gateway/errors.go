package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a gateway failure. Closed set; callers switch on it
// instead of inspecting provider-specific error shapes.
type Kind string

const (
	// KindConfig means no usable credential is available. Fatal to every
	// call until corrected; never retried.
	KindConfig Kind = "config"
	// KindPolicy means the provider declined to produce content for
	// safety/policy reasons. Terminal for the request.
	KindPolicy Kind = "policy"
	// KindQuota means usage or billing limits were exceeded.
	KindQuota Kind = "quota"
	// KindMalformed means a structured-generation response failed to parse
	// against its expected shape.
	KindMalformed Kind = "malformed"
	// KindTransient covers every other provider or transport failure.
	KindTransient Kind = "transient"
)

// Error is the normalized gateway failure. Message is user-facing (Arabic,
// matching the rest of the product copy); Err keeps the underlying cause
// for logs and wrapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the display string for a gateway failure, falling
// back to a generic message for non-gateway errors.
func UserMessage(err error) string {
	if gerr, ok := err.(*Error); ok {
		return gerr.Message
	}
	return fmt.Sprintf("حدث خطأ غير متوقع: %v", err)
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func errNoAPIKey() *Error {
	return newError(KindConfig,
		"لم يتم تكوين مفتاح Google Gemini API. يرجى إضافته في صفحة الإعدادات للمتابعة.", nil)
}

// apiError is the JSON error body the Gemini API returns on failure.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// classifyStatus maps a non-200 HTTP response onto the error taxonomy.
// context names the operation for the generic fallback message.
func classifyStatus(statusCode int, body []byte, context string) *Error {
	raw := string(body)

	var parsed struct {
		Error *apiError `json:"error"`
	}
	var ae *apiError
	if err := json.Unmarshal(body, &parsed); err == nil {
		ae = parsed.Error
	}

	cause := fmt.Errorf("API request failed with status %d: %s", statusCode, strings.TrimSpace(raw))

	if ae != nil {
		switch {
		case ae.Status == "RESOURCE_EXHAUSTED", ae.Code == 429,
			strings.Contains(ae.Message, "insufficient_quota"),
			strings.Contains(ae.Message, "Insufficient Balance"):
			return newError(KindQuota,
				"لقد تجاوزت حصة الاستخدام الخاصة بك. يرجى مراجعة خطتك وتفاصيل الفوترة لدى مزود الخدمة.", cause)
		case strings.Contains(ae.Message, "API key not valid"):
			return newError(KindConfig,
				"مفتاح API غير صالح. يرجى التحقق منه في صفحة الإعدادات.", cause)
		case strings.Contains(ae.Message, "API is only accessible to billed users"):
			return newError(KindQuota,
				"للاستفادة من ميزات توليد الصور والفيديو، يجب أن يكون حساب Google Cloud الخاص بك مفوترًا. يرجى تفعيل الفوترة ثم المحاولة مرة أخرى.", cause)
		case ae.Status == "PERMISSION_DENIED":
			return newError(KindConfig,
				fmt.Sprintf("[%s] %s", ae.Status, ae.Message), cause)
		}
		status := ae.Status
		if status == "" {
			status = "خطأ في الواجهة"
		}
		return newError(KindTransient, fmt.Sprintf("[%s] %s", status, ae.Message), cause)
	}

	if statusCode == 429 {
		return newError(KindQuota,
			"لقد تجاوزت حصة الاستخدام الخاصة بك. يرجى مراجعة خطتك وتفاصيل الفوترة لدى مزود الخدمة.", cause)
	}

	return newError(KindTransient,
		fmt.Sprintf("حدث خطأ أثناء %s.", context), cause)
}

// classifyTransport wraps a transport-level failure (dial, timeout, body
// read) as transient.
func classifyTransport(err error, context string) *Error {
	return newError(KindTransient,
		fmt.Sprintf("حدث خطأ أثناء %s: تعذر الاتصال بالخدمة.", context), err)
}

// errPolicyBlocked reports a content-policy rejection, distinct from any
// transient failure.
func errPolicyBlocked(reason string) *Error {
	return newError(KindPolicy,
		fmt.Sprintf("تم حظر الطلب بسبب سياسات السلامة (السبب: %s). يرجى تعديل الطلب والمحاولة مرة أخرى.", reason), nil)
}

// errMalformed reports a response that failed to parse against its
// expected shape.
func errMalformed(context string, cause error) *Error {
	return newError(KindMalformed,
		fmt.Sprintf("أعاد النموذج استجابة غير صالحة أثناء %s.", context), cause)
}
