package capability

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
)

const imageAnalystPrompt = `You are an insurance image analyst.
Classify the image into exactly one of these categories: claim_form, invoice, damage_photo.
Then extract any structured data you can confidently identify.

For damage_photo: vehicle type, damage location, damage type, visible damage details.
For invoice: invoice number, total cost, service details, vehicle info.
For claim_form: claim number, dates, claimant info.

Always include a "summary" field describing what the image shows.

Reply with a JSON object like:
{"category": "damage_photo", "summary": "...", "data_extracted": {"vehicle_type": "car", "damage_location": "front"}}`

// imageCategories are the classifications analyze_image reports. Anything
// else the model answers becomes "unknown".
var imageCategories = map[string]bool{
	"claim_form":   true,
	"invoice":      true,
	"damage_photo": true,
}

type imageAnalysis struct {
	Category      string         `json:"category"`
	Summary       string         `json:"summary"`
	DataExtracted map[string]any `json:"data_extracted"`
}

func imageExecutor(client llm.LLMClient, model string, resolve func(string) string) ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		p, err := stringArg(args, "image_path")
		if err != nil {
			return nil, err
		}
		path := resolve(p)

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return json.Marshal(map[string]string{"status": "error", "message": fmt.Sprintf("Image not found: %s", p)})
			}
			return nil, errors.Wrapf(err, "failed to read %s", p)
		}
		if client == nil {
			return nil, errors.New("no vision model configured")
		}

		mediaType := mime.TypeByExtension(filepath.Ext(path))
		if mediaType == "" {
			mediaType = http.DetectContentType(data)
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))

		resp, err := client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
			Model: model,
			Messages: []llm.ChatMessage{
				{Role: "system", Content: imageAnalystPrompt},
				{
					Role:      "user",
					Content:   fmt.Sprintf("Analyze this image (%s) and reply with JSON.", filepath.Base(path)),
					ImageURLs: []string{dataURL},
				},
			},
			JSONResponse: true,
		})
		if err != nil {
			return nil, errors.Wrap(err, "image analysis failed")
		}

		var a imageAnalysis
		if err := json.Unmarshal([]byte(resp.Message.Content), &a); err != nil {
			return json.Marshal(map[string]any{
				"status":       "success",
				"category":     "unknown",
				"raw_response": resp.Message.Content,
			})
		}
		if a.DataExtracted == nil {
			a.DataExtracted = map[string]any{}
		}
		category := strings.ToLower(strings.TrimSpace(a.Category))
		if !imageCategories[category] {
			category = "unknown"
		}
		return json.Marshal(map[string]any{
			"status":         "success",
			"category":       category,
			"summary":        a.Summary,
			"data_extracted": a.DataExtracted,
		})
	}
}
