package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mzassist/internal/logging"
	"mzassist/internal/types"
)

// VideoOperation is the narrow handle wrapping an in-flight long-running
// video generation request. The rest of the core only ever inspects Done
// and the artifact-or-failure accessors, never provider shapes.
type VideoOperation struct {
	Name     string // provider operation name, e.g. "operations/abc123"
	Done     bool
	VideoURI string // set when Done and the request succeeded
	Failure  string // set when Done and the request failed
}

// Artifact returns the generated video URI, if the operation completed
// successfully.
func (op *VideoOperation) Artifact() (string, bool) {
	return op.VideoURI, op.Done && op.VideoURI != ""
}

// Err returns the terminal failure, if any. A done operation with neither
// artifact nor recorded failure is reported as a failure too: the provider
// contract promises one of the two.
func (op *VideoOperation) Err() error {
	if !op.Done || op.VideoURI != "" {
		return nil
	}
	if op.Failure != "" {
		return newError(KindTransient, op.Failure, nil)
	}
	return newError(KindTransient, "فشل توليد الفيديو أو لم يتم العثور على رابط.", nil)
}

// GenerateVideo submits a long-running video generation request and
// returns immediately with an operation handle. It never polls.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, image *types.InlineImage) (*VideoOperation, error) {
	const opContext = "توليد الفيديو"

	instance := videoInstance{Prompt: prompt}
	if image != nil {
		instance.Image = &videoImage{BytesBase64Encoded: image.Data, MIMEType: image.MIMEType}
	}
	req := videoRequest{
		Instances:  []videoInstance{instance},
		Parameters: videoParameters{SampleCount: 1},
	}

	var resp operationResponse
	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, c.videoModel)
	if err := c.postJSON(ctx, url, req, &resp, opContext); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, errMalformed(opContext, fmt.Errorf("operation name missing in response"))
	}

	logging.Gateway("GenerateVideo: submitted operation %s", resp.Name)
	return operationFromResponse(&resp), nil
}

// PollVideoStatus performs a single status check and returns the updated
// handle. Looping is the poller's job, not the gateway's.
func (c *Client) PollVideoStatus(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	const opContext = "الحصول على حالة عملية الفيديو"

	var resp operationResponse
	url := fmt.Sprintf("%s/%s", c.baseURL, op.Name)
	if err := c.getJSON(ctx, url, &resp, opContext); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		resp.Name = op.Name
	}

	updated := operationFromResponse(&resp)
	logging.PollerDebug("PollVideoStatus: %s done=%v", updated.Name, updated.Done)
	return updated, nil
}

// DownloadVideo materializes a generated video from its signed URI. The
// fetch is authenticated with the API key; any failure here is a terminal
// failure for the owning job.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errNoAPIKey()
	}

	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindTransient, "فشل تحميل الفيديو: تعذر الاتصال بالخدمة.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindTransient,
			fmt.Sprintf("فشل تحميل الفيديو: %s", resp.Status),
			fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindTransient, "فشل تحميل الفيديو أثناء القراءة.", err)
	}
	logging.Gateway("DownloadVideo: fetched %d bytes", len(data))
	return data, nil
}

func operationFromResponse(resp *operationResponse) *VideoOperation {
	op := &VideoOperation{Name: resp.Name, Done: resp.Done}
	if !resp.Done {
		return op
	}
	if resp.Error != nil {
		op.Failure = resp.Error.Message
		return op
	}
	if resp.Response != nil && resp.Response.GenerateVideoResponse != nil {
		for _, sample := range resp.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video != nil && sample.Video.URI != "" {
				op.VideoURI = sample.Video.URI
				break
			}
		}
	}
	return op
}
