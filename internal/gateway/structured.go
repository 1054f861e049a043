package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"mzassist/internal/types"
)

// generateText runs a one-shot text generation call with a system
// instruction and, optionally, a JSON response schema. Used by every
// structured and text-tool operation.
func (c *Client) generateText(ctx context.Context, parts []types.Part, systemInstruction string, schema map[string]interface{}, opContext string) (string, error) {
	wireParts := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			wireParts = append(wireParts, geminiPart{InlineData: &inlineData{
				MIMEType: p.Image.MIMEType,
				Data:     p.Image.Data,
			}})
			continue
		}
		wireParts = append(wireParts, geminiPart{Text: p.Text})
	}

	req := generateRequest{
		Contents: []geminiContent{{Role: "user", Parts: wireParts}},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		},
	}
	if schema != nil {
		req.GenerationConfig = &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.chatModel)
	if err := c.postJSON(ctx, url, req, &resp, opContext); err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", errPolicyBlocked(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", newError(KindTransient, "لم يتم تلقي أي استجابة صالحة من النموذج.", nil)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// GenerateText runs a one-shot generation with an arbitrary system
// instruction; the thin stateless text tools build on this.
func (c *Client) GenerateText(ctx context.Context, prompt, systemInstruction string) (string, error) {
	return c.generateText(ctx, []types.Part{types.TextPart(prompt)}, systemInstruction, nil, "توليد نص")
}

// GenerateQuiz builds an educational quiz from source text. The response
// is schema-constrained; output that fails to parse is a malformed-result
// error, never coerced into a partial quiz.
func (c *Client) GenerateQuiz(ctx context.Context, text string, quizType types.QuizType, count int) ([]types.QuizQuestion, error) {
	const opContext = "إنشاء الاختبار"

	schema := map[string]interface{}{
		"type": "ARRAY",
		"items": map[string]interface{}{
			"type": "OBJECT",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{"type": "STRING"},
				"options":  map[string]interface{}{"type": "ARRAY", "items": map[string]interface{}{"type": "STRING"}},
				"answer":   map[string]interface{}{"type": "STRING"},
			},
			"required": []string{"question", "answer"},
		},
	}

	prompt := fmt.Sprintf("Generate a quiz with %d questions of type '%s' based on the following text. Ensure the questions are relevant and cover the main points of the text. For multiple-choice questions, provide 4 options. Text: \"\"\"%s\"\"\"", count, quizType, text)
	system := "أنت مساعد ذكاء اصطناعي مصمم لإنشاء اختبارات تعليمية. قم بإنشاء أسئلة عالية الجودة بناءً على النص المقدم وأرجع الإخراج بتنسيق JSON المحدد."

	raw, err := c.generateText(ctx, []types.Part{types.TextPart(prompt)}, system, schema, opContext)
	if err != nil {
		return nil, err
	}

	var quiz []types.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return nil, errMalformed(opContext, err)
	}
	return quiz, nil
}

// GenerateSlides builds a short slide deck on a topic.
func (c *Client) GenerateSlides(ctx context.Context, topic string) ([]types.Slide, error) {
	const opContext = "إنشاء الشرائح"

	schema := map[string]interface{}{
		"type": "ARRAY",
		"items": map[string]interface{}{
			"type": "OBJECT",
			"properties": map[string]interface{}{
				"title":   map[string]interface{}{"type": "STRING"},
				"content": map[string]interface{}{"type": "STRING"},
			},
			"required": []string{"title", "content"},
		},
	}

	prompt := fmt.Sprintf("Create a concise and informative slide presentation on the topic: %q. Generate 5 to 7 slides.", topic)
	system := "أنت خبير في إنشاء العروض التقديمية. لكل شريحة، قدم عنوانًا قصيرًا و 3-5 نقاط كنص واحد مع بدء كل نقطة بشرطة."

	raw, err := c.generateText(ctx, []types.Part{types.TextPart(prompt)}, system, schema, opContext)
	if err != nil {
		return nil, err
	}

	var slides []types.Slide
	if err := json.Unmarshal([]byte(raw), &slides); err != nil {
		return nil, errMalformed(opContext, err)
	}
	return slides, nil
}

// GenerateBook drafts a full book plan on a topic: title, a cover image
// search query, and chapter texts.
func (c *Client) GenerateBook(ctx context.Context, topic string) (*types.BookContent, error) {
	const opContext = "إنشاء الكتاب"

	schema := map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"title":       map[string]interface{}{"type": "STRING"},
			"cover_query": map[string]interface{}{"type": "STRING"},
			"chapters": map[string]interface{}{
				"type": "ARRAY",
				"items": map[string]interface{}{
					"type": "OBJECT",
					"properties": map[string]interface{}{
						"title":   map[string]interface{}{"type": "STRING"},
						"content": map[string]interface{}{"type": "STRING"},
					},
					"required": []string{"title", "content"},
				},
			},
		},
		"required": []string{"title", "cover_query", "chapters"},
	}

	prompt := fmt.Sprintf("Write a short book about: %q. Provide a compelling title, a simple two-word English search query for a cover photo, and 4 to 6 chapters with substantial content each.", topic)
	system := "أنت مؤلف كتب محترف. اكتب كتابًا قصيرًا باللغة العربية حول الموضوع المحدد وأرجع الإخراج بتنسيق JSON المحدد. يجب أن يكون حقل cover_query بالإنجليزية."

	raw, err := c.generateText(ctx, []types.Part{types.TextPart(prompt)}, system, schema, opContext)
	if err != nil {
		return nil, err
	}

	var book types.BookContent
	if err := json.Unmarshal([]byte(raw), &book); err != nil {
		return nil, errMalformed(opContext, err)
	}
	return &book, nil
}

// AnalyzeVideoURL summarizes and quizzes the content of a video URL.
func (c *Client) AnalyzeVideoURL(ctx context.Context, videoURL string) (*types.VideoAnalysis, error) {
	const opContext = "تحليل الفيديو"

	schema := map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"summary": map[string]interface{}{"type": "STRING"},
			"quiz": map[string]interface{}{
				"type": "ARRAY",
				"items": map[string]interface{}{
					"type": "OBJECT",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{"type": "STRING"},
						"options":  map[string]interface{}{"type": "ARRAY", "items": map[string]interface{}{"type": "STRING"}},
						"answer":   map[string]interface{}{"type": "STRING"},
					},
					"required": []string{"question", "options", "answer"},
				},
			},
		},
		"required": []string{"summary", "quiz"},
	}

	prompt := fmt.Sprintf("Analyze the video from this URL: %s. Provide a concise summary of its content in Arabic and then generate a 5-question multiple-choice quiz in Arabic based on the video's key points. If you cannot access the video content, you MUST report an error and not invent information.", videoURL)
	system := "أنت مساعد ذكاء اصطناعي متخصص في تحليل محتوى الفيديو من الروابط. ستقدم ملخصًا واختبارًا باللغة العربية، بتنسيق JSON المحدد. إذا لم تتمكن من الوصول إلى المحتوى، يجب عليك الإبلاغ عن خطأ وعدم اختلاق معلومات."

	raw, err := c.generateText(ctx, []types.Part{types.TextPart(prompt)}, system, schema, opContext)
	if err != nil {
		return nil, err
	}

	var analysis types.VideoAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, errMalformed(opContext, err)
	}
	return &analysis, nil
}

var codeFenceRe = regexp.MustCompile("```(html|jsx|javascript)?\n?|```")

// GenerateWebsite produces a complete single-file website for the prompt
// in the requested tech stack and content language.
func (c *Client) GenerateWebsite(ctx context.Context, prompt string, stack types.WebTechStack, language string) (string, error) {
	system := websiteInstruction(stack, language)
	userPrompt := fmt.Sprintf("Generate a complete, single-file website based on this prompt: %q", prompt)

	code, err := c.generateText(ctx, []types.Part{types.TextPart(userPrompt)}, system, nil, "توليد الموقع")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(codeFenceRe.ReplaceAllString(code, "")), nil
}

var rtlLanguages = map[string]bool{
	"Arabic": true, "Hebrew": true, "Persian": true, "Urdu": true,
}

var languageCodes = map[string]string{
	"Arabic": "ar", "English": "en", "Spanish": "es", "French": "fr",
	"German": "de", "Japanese": "ja", "Chinese": "zh", "Russian": "ru",
}

// websiteInstruction composes the system instruction for website
// generation, exhaustive over the closed tech-stack set.
func websiteInstruction(stack types.WebTechStack, language string) string {
	langCode := languageCodes[language]
	if langCode == "" {
		langCode = "en"
	}
	dir := "ltr"
	if rtlLanguages[language] {
		dir = "rtl"
	}
	htmlTag := fmt.Sprintf("<html lang=%q dir=%q>", langCode, dir)

	common := fmt.Sprintf("أنت مطور ويب خبير. مهمتك هي إنشاء موقع ويب كامل في ملف واحد بناءً على طلب المستخدم. يجب أن يكون كل المحتوى النصي باللغة %s. استخدم وسوم HTML5 الدلالية، وأضف وسم <title> ووسم meta description باللغة نفسها، واستخدم صورًا وهمية من picsum.photos. يجب أن يكون الإخراج النهائي هو الكود فقط دون أي شروحات أو تنسيق markdown.", language)

	switch stack {
	case types.StackTailwind:
		return common + fmt.Sprintf("\nأنشئ ملف HTML واحدًا يستخدم Tailwind CSS لجميع التنسيقات مع تضمين سكربت CDN الرسمي في <head>. يجب أن يكون العنصر الجذري %s.", htmlTag)
	case types.StackReactTailwind:
		return fmt.Sprintf("أنت مطور React خبير. أنشئ ملف مكون JSX واحدًا وكاملًا لصفحة ويب، بافتراض مشروع React مهيأ مع Tailwind CSS. لا تقم بتضمين وسوم <html> أو <body>. كل المحتوى النصي باللغة %s. يجب أن يكون الإخراج هو كود JSX فقط والمكون تصديرًا افتراضيًا.", language)
	case types.StackHTMLCSS:
		return common + fmt.Sprintf("\nأنشئ ملف HTML واحدًا مع كل تنسيق CSS داخل وسم <style> واحد في <head>. اجعل التصميم عصريًا ومتجاوبًا. يجب أن يكون العنصر الجذري %s.", htmlTag)
	}
	return common + fmt.Sprintf("\nأنشئ ملف HTML واحدًا مع كل تنسيق CSS داخل وسم <style> واحد في <head>. يجب أن يكون العنصر الجذري %s.", htmlTag)
}
