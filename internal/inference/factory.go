package inference

import (
	"context"
	"fmt"
	"time"

	"chitieu/internal/log"
	"chitieu/internal/nlp"
)

type Provider string

const (
	ProviderNone        Provider = "none"
	ProviderHuggingFace Provider = "huggingface"
	ProviderOpenAI      Provider = "openai"
	ProviderGemini      Provider = "gemini"
)

// Config selects and configures the model provider.
type Config struct {
	Provider        Provider
	HFToken         string
	HFBaseURL       string
	NERModel        string
	ClassifierModel string
	GenModel        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
}

// Capabilities are the optional model-backed collaborators. Any field may be
// nil, in which case the rule-based fallback is used.
type Capabilities struct {
	Recognizer nlp.AmountEntityRecognizer
	Category   nlp.TextGenerator
	Commentary nlp.TextGenerator
}

// Observer receives one call per model request.
type Observer interface {
	ObserveModelCall(provider, operation string, took time.Duration, err error)
}

// New builds the capabilities for cfg. ProviderNone disables every model.
// Otherwise entity recognition is served by the Inference API whenever
// NER_MODEL is set, whatever the generation provider.
func New(ctx context.Context, cfg Config, logger *log.Logger, obs Observer) (Capabilities, error) {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentInference)
	var caps Capabilities

	hf := NewHuggingFace(cfg.HFBaseURL, cfg.HFToken)
	switch cfg.Provider {
	case ProviderNone, "":
		logger.Info("No model provider configured, using rule-based extraction")
		return Capabilities{}, nil
	case ProviderHuggingFace:
		if cfg.ClassifierModel != "" {
			caps.Category = hf.Generator(cfg.ClassifierModel)
		}
		if cfg.GenModel != "" {
			caps.Commentary = hf.Generator(cfg.GenModel)
		}
	case ProviderOpenAI:
		g := NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		caps.Category, caps.Commentary = g, g
	case ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return Capabilities{}, err
		}
		caps.Category, caps.Commentary = g, g
	default:
		return Capabilities{}, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	if cfg.NERModel != "" {
		caps.Recognizer = instrumentRecognizer(hf.EntityRecognizer(cfg.NERModel), string(ProviderHuggingFace), obs)
	}
	if caps.Category != nil {
		caps.Category = instrumentGenerator(caps.Category, string(cfg.Provider), log.OpClassify, obs)
	}
	if caps.Commentary != nil {
		caps.Commentary = instrumentGenerator(caps.Commentary, string(cfg.Provider), log.OpGenerate, obs)
	}

	logger.Info("Model capabilities configured",
		log.FieldProvider, cfg.Provider,
		"entity_recognition", caps.Recognizer != nil,
		"category_model", caps.Category != nil,
		"commentary_model", caps.Commentary != nil,
	)
	return caps, nil
}

type observedGenerator struct {
	next      nlp.TextGenerator
	provider  string
	operation string
	obs       Observer
}

func instrumentGenerator(g nlp.TextGenerator, provider, operation string, obs Observer) nlp.TextGenerator {
	if obs == nil {
		return g
	}
	return &observedGenerator{next: g, provider: provider, operation: operation, obs: obs}
}

func (o *observedGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	out, err := o.next.Generate(ctx, prompt, maxTokens)
	o.obs.ObserveModelCall(o.provider, o.operation, time.Since(start), err)
	return out, err
}

type observedRecognizer struct {
	next     nlp.AmountEntityRecognizer
	provider string
	obs      Observer
}

func instrumentRecognizer(r nlp.AmountEntityRecognizer, provider string, obs Observer) nlp.AmountEntityRecognizer {
	if obs == nil {
		return r
	}
	return &observedRecognizer{next: r, provider: provider, obs: obs}
}

func (o *observedRecognizer) RecognizeEntities(ctx context.Context, text string) ([]nlp.Entity, error) {
	start := time.Now()
	out, err := o.next.RecognizeEntities(ctx, text)
	o.obs.ObserveModelCall(o.provider, log.OpExtract, time.Since(start), err)
	return out, err
}
