package classifier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
)

const (
	completionsURL = "https://api.openai.com/v1/chat/completions"
	maxTokens      = 100

	systemPrompt = "You are a strict content evaluator focusing on scam detection. " +
		"Not all external links are suspicious; however, messages containing " +
		"Discord invite URLs, link shorteners, offers for Web3.0 jobs, " +
		"or messages that appear to recruit for jobs are also likely to be scams. " +
		"Additionally, messages from people promising easy earnings or investment opportunities " +
		"are highly suspicious. If the content contains any of these elements or seems to fit " +
		"the pattern of scam behavior, consider it a scam."
)

// TransientError signals a backend failure worth retrying: timeouts, rate
// limits and server-side errors. RetryAfter is a hint; the coordinator owns
// the retry policy.
type TransientError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient classifier failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Gateway wraps the OpenAI chat-completions backend behind the pipeline's
// verdict contract.
type Gateway struct {
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	endpoint    string
	client      *fasthttp.Client
}

func NewGateway(cfg config.ClassifierConfig) *Gateway {
	return &Gateway{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout,
		endpoint:    completionsURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         cfg.RequestTimeout,
			WriteTimeout:        cfg.RequestTimeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Classify asks the backend whether a flagged message is a scam. The hint is
// best-effort context (the originating server's name) and may be empty. A
// nil error always carries a usable Verdict; ambiguous replies degrade to
// not-scam rather than failing the pipeline.
func (g *Gateway) Classify(text, communityHint string) (models.Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return models.Verdict{}, fmt.Errorf("empty message text")
	}

	userPrompt := fmt.Sprintf(
		"The following message was flagged by AutoMod:\n\n\"%s\"\n\n"+
			"Is this message a scam? Start your answer with 'YES:' or 'NO:'.",
		text,
	)
	if communityHint != "" {
		userPrompt += fmt.Sprintf("\n(The message was posted in the server %q.)", communityHint)
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("encode classifier request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := g.client.DoTimeout(req, resp, g.timeout); err != nil {
		return models.Verdict{}, &TransientError{Err: err}
	}

	statusCode := resp.StatusCode()
	if statusCode == fasthttp.StatusTooManyRequests || statusCode >= 500 {
		return models.Verdict{}, &TransientError{
			RetryAfter: retryAfterHint(resp),
			Err:        fmt.Errorf("classifier backend returned %d", statusCode),
		}
	}
	if statusCode != fasthttp.StatusOK {
		return models.Verdict{}, fmt.Errorf("classifier backend returned %d: %s", statusCode, resp.Body())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return models.Verdict{}, fmt.Errorf("decode classifier response: %w", err)
	}
	if parsed.Error != nil {
		return models.Verdict{}, fmt.Errorf("classifier backend error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return models.Verdict{}, fmt.Errorf("classifier backend returned no choices")
	}

	reply := strings.TrimSpace(parsed.Choices[0].Message.Content)
	logging.Debug("Classifier reply: %s", reply)

	return ParseVerdict(reply), nil
}

// ParseVerdict interprets the backend's free-form reply. The protocol asks
// for a YES: or NO: prefix; anything else is ambiguous and maps to not-scam
// with a rationale noting the ambiguity, so a misbehaving model can never
// trigger a ban on its own.
func ParseVerdict(reply string) models.Verdict {
	trimmed := strings.TrimSpace(reply)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "yes:"):
		return models.Verdict{
			IsScam:    true,
			Rationale: strings.TrimSpace(trimmed[len("yes:"):]),
		}
	case strings.HasPrefix(lower, "no:"):
		return models.Verdict{
			IsScam:    false,
			Rationale: strings.TrimSpace(trimmed[len("no:"):]),
		}
	default:
		return models.Verdict{
			IsScam:    false,
			Rationale: fmt.Sprintf("ambiguous classifier reply treated as not-scam: %q", truncate(trimmed, 200)),
		}
	}
}

func retryAfterHint(resp *fasthttp.Response) time.Duration {
	raw := string(resp.Header.Peek("Retry-After"))
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
