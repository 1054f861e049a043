// Package gateway is the facade over the Gemini API: one-shot text and
// image generation, long-running video generation with status checks, and
// schema-constrained structured generation. It owns provider error
// classification; raw provider failures never escape uninterpreted.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mzassist/internal/logging"
	"mzassist/internal/types"
)

const providerName = "Gemini"

// GreetingTurnID marks the seeded greeting turn; it is display-only and is
// excluded from the history sent to the model.
const GreetingTurnID = "init"

const imagePromptEnhancements = "photorealistic, hyperrealistic, 8k, ultra-detailed, professional photography, sharp focus, high quality, masterpiece"

// Config holds gateway configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	EditModel  string
	VideoModel string
	Timeout    time.Duration
}

// DefaultConfig returns sensible defaults for the given key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		ChatModel:  "gemini-2.5-flash",
		ImageModel: "imagen-4.0-generate-001",
		EditModel:  "gemini-2.5-flash-image-preview",
		VideoModel: "veo-2.0-generate-001",
		Timeout:    2 * time.Minute,
	}
}

// Client talks to the Gemini REST API.
type Client struct {
	apiKey     string
	baseURL    string
	chatModel  string
	imageModel string
	editModel  string
	videoModel string
	httpClient *http.Client
}

// NewClient creates a gateway client, filling unset config fields from
// DefaultConfig.
func NewClient(cfg Config) *Client {
	def := DefaultConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = def.ImageModel
	}
	if cfg.EditModel == "" {
		cfg.EditModel = def.EditModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = def.VideoModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		editModel:  cfg.EditModel,
		videoModel: cfg.VideoModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// HasAPIKey reports whether a credential is configured.
func (c *Client) HasAPIKey() bool { return c.apiKey != "" }

// postJSON sends one POST and decodes the response into out. Non-200
// responses and transport failures are classified; there is no retry —
// every failure is reported exactly once per call.
func (c *Client) postJSON(ctx context.Context, url string, reqBody, out interface{}, opContext string) error {
	if c.apiKey == "" {
		return errNoAPIKey()
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Get(logging.CategoryGateway).Error("%s: request failed: %v", opContext, err)
		return classifyTransport(err, opContext)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err, opContext)
	}
	if resp.StatusCode != http.StatusOK {
		gerr := classifyStatus(resp.StatusCode, body, opContext)
		logging.Get(logging.CategoryGateway).Error("%s: status %d kind=%s", opContext, resp.StatusCode, gerr.Kind)
		return gerr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errMalformed(opContext, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}, opContext string) error {
	if c.apiKey == "" {
		return errNoAPIKey()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err, opContext)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err, opContext)
	}
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, body, opContext)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errMalformed(opContext, err)
	}
	return nil
}

// ChatResult is the outcome of one Converse call.
type ChatResult struct {
	Text    string
	Debug   types.DebugInfo
	Sources []types.GroundingSource
}

// Converse runs one-shot text generation over the full turn history under
// the selected mode. In google-search mode, deduplicated citations are
// appended to the visible text and returned as Sources.
func (c *Client) Converse(ctx context.Context, turns []types.Turn, mode types.ChatMode) (*ChatResult, error) {
	const opContext = "تشغيل الاستعلام"
	start := time.Now()

	contents := historyToContents(turns)
	if len(contents) == 0 {
		return nil, newError(KindTransient, "لا يمكن إرسال رسالة فارغة.", nil)
	}

	req := generateRequest{
		Contents: contents,
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemInstructionFor(mode)}},
		},
	}
	switch mode {
	case types.ModeGoogleSearch:
		req.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	case types.ModeQuickResponse:
		zero := 0
		req.GenerationConfig = &generationConfig{ThinkingConfig: &thinkingConfig{ThinkingBudget: &zero}}
	case types.ModeDefault, types.ModeLearning:
		// No extra request shaping.
	}

	logging.GatewayDebug("Converse: model=%s mode=%s turns=%d", c.chatModel, mode, len(contents))

	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.chatModel)
	if err := c.postJSON(ctx, url, req, &resp, opContext); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, classifyStatus(resp.Error.Code, mustJSON(resp.Error), opContext)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, errPolicyBlocked(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, newError(KindTransient, "لم يتم تلقي أي استجابة صالحة من النموذج.", nil)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()

	result := &ChatResult{
		Text: text,
		Debug: types.DebugInfo{
			ResponseTimeMs: time.Since(start).Milliseconds(),
			Provider:       providerName,
			Model:          c.chatModel,
			TotalTokens:    resp.UsageMetadata.TotalTokenCount,
		},
	}

	if mode == types.ModeGoogleSearch && resp.Candidates[0].GroundingMetadata != nil {
		result.Sources = dedupeSources(resp.Candidates[0].GroundingMetadata.GroundingChunks)
		if len(result.Sources) > 0 {
			links := make([]string, 0, len(result.Sources))
			for _, src := range result.Sources {
				links = append(links, fmt.Sprintf("[%s](%s)", src.Title, src.URI))
			}
			result.Text += "\n\n**المصادر:**\n" + strings.Join(links, "\n")
		}
	}

	logging.Gateway("Converse: completed in %v response_len=%d sources=%d",
		time.Since(start), len(result.Text), len(result.Sources))
	return result, nil
}

// historyToContents converts turn history into wire contents, dropping
// error turns and the seeded greeting.
func historyToContents(turns []types.Turn) []geminiContent {
	contents := make([]geminiContent, 0, len(turns))
	for _, turn := range turns {
		if turn.ID == GreetingTurnID {
			continue
		}
		switch turn.Role {
		case types.RoleUser, types.RoleModel:
		case types.RoleError:
			continue
		default:
			continue
		}
		parts := make([]geminiPart, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.Image != nil {
				parts = append(parts, geminiPart{InlineData: &inlineData{
					MIMEType: p.Image.MIMEType,
					Data:     p.Image.Data,
				}})
				continue
			}
			parts = append(parts, geminiPart{Text: p.Text})
		}
		contents = append(contents, geminiContent{Role: string(turn.Role), Parts: parts})
	}
	return contents
}

// dedupeSources keeps one source per URI; the first-seen title wins.
func dedupeSources(chunks []groundingChunk) []types.GroundingSource {
	seen := make(map[string]bool, len(chunks))
	var sources []types.GroundingSource
	for _, chunk := range chunks {
		if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		sources = append(sources, types.GroundingSource{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return sources
}

// AspectRatio is a caller-validated enumeration for image generation.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectClassic   AspectRatio = "4:3"
	AspectVertical  AspectRatio = "3:4"
)

// Valid reports whether a is a supported aspect ratio.
func (a AspectRatio) Valid() bool {
	switch a {
	case AspectSquare, AspectPortrait, AspectLandscape, AspectClassic, AspectVertical:
		return true
	}
	return false
}

// GenerateImages runs one-shot image generation and returns data URLs.
func (c *Client) GenerateImages(ctx context.Context, prompt string, count int, aspect AspectRatio) ([]string, error) {
	const opContext = "توليد الصور"
	if count < 1 || count > 4 {
		return nil, fmt.Errorf("image count must be between 1 and 4, got %d", count)
	}
	if !aspect.Valid() {
		return nil, fmt.Errorf("unsupported aspect ratio %q", aspect)
	}

	req := predictRequest{
		Instances: []imageInstance{{
			Prompt: fmt.Sprintf("%s, %s. Strictly adhere to the core subject of the user's prompt.", prompt, imagePromptEnhancements),
		}},
		Parameters: imageParameters{
			SampleCount:    count,
			AspectRatio:    string(aspect),
			OutputMIMEType: "image/jpeg",
		},
	}

	var resp predictResponse
	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, c.imageModel)
	if err := c.postJSON(ctx, url, req, &resp, opContext); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, errMalformed(opContext, fmt.Errorf("no predictions returned"))
	}

	images := make([]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		images = append(images, "data:image/jpeg;base64,"+p.BytesBase64Encoded)
	}
	logging.Gateway("GenerateImages: %d images for prompt_len=%d", len(images), len(prompt))
	return images, nil
}

// GenerateLogo generates four square logo variants in the requested style.
func (c *Client) GenerateLogo(ctx context.Context, prompt, style string) ([]string, error) {
	const opContext = "توليد الشعارات"

	req := predictRequest{
		Instances: []imageInstance{{
			Prompt: fmt.Sprintf("%s logo for %s, vector, simple, on a clean white background", style, prompt),
		}},
		Parameters: imageParameters{
			SampleCount:    4,
			AspectRatio:    string(AspectSquare),
			OutputMIMEType: "image/png",
		},
	}

	var resp predictResponse
	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, c.imageModel)
	if err := c.postJSON(ctx, url, req, &resp, opContext); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, errMalformed(opContext, fmt.Errorf("no predictions returned"))
	}

	logos := make([]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		logos = append(logos, "data:image/png;base64,"+p.BytesBase64Encoded)
	}
	return logos, nil
}

// EditImage applies an instruction to an image and returns the edited image
// as base64 bytes. Policy blocks are reported as policy errors; a response
// with no image part is malformed, not transient.
func (c *Client) EditImage(ctx context.Context, image types.InlineImage, prompt string) (string, error) {
	const opContext = "تحرير الصورة"

	req := generateRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &inlineData{MIMEType: image.MIMEType, Data: image.Data}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}

	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.editModel)
	if err := c.postJSON(ctx, url, req, &resp, opContext); err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", errPolicyBlocked(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", newError(KindTransient, "لم يتم تلقي أي استجابة صالحة من النموذج.", nil)
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != "" && cand.FinishReason != "STOP" {
		if cand.FinishReason == "SAFETY" {
			return "", newError(KindPolicy,
				"تعذر تعديل الصورة لأنها تنتهك سياسات السلامة. يرجى تجربة صورة أو وصف مختلف.", nil)
		}
		return "", newError(KindTransient,
			fmt.Sprintf("فشل إنشاء الصورة. السبب: %s.", cand.FinishReason), nil)
	}

	for _, part := range cand.Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return part.InlineData.Data, nil
		}
	}
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			return "", errMalformed(opContext,
				fmt.Errorf("no image returned, model replied: %q", part.Text))
		}
	}
	return "", errMalformed(opContext, fmt.Errorf("no image part in response"))
}

func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(struct {
		Error interface{} `json:"error"`
	}{v})
	if err != nil {
		return nil
	}
	return raw
}
