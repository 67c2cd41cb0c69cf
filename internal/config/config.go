// Package config provides configuration types and loading for recepbot.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Persona, Pipeline, Channels, Providers, TaskBoard, Events, Log.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Persona   PersonaConfig   `json:"persona"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	TaskBoard TaskBoardConfig `json:"taskBoard"`
	Events    EventsConfig    `json:"events"`
	Log       LogConfig       `json:"log"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ---------------------------------------------------------------------------
// Model – generation behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups the generation settings shared by the classifier and the responder.
type ModelConfig struct {
	Name                string  `json:"name" envconfig:"MODEL"`
	Temperature         float64 `json:"temperature" envconfig:"TEMPERATURE"`
	TopP                float64 `json:"topP" envconfig:"TOP_P"`
	TopK                int     `json:"topK" envconfig:"TOP_K"`
	MaxTokens           int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	ClassifierMaxTokens int     `json:"classifierMaxTokens" envconfig:"CLASSIFIER_MAX_TOKENS"`
	ResponseMIMEType    string  `json:"responseMimeType"`
}

// ---------------------------------------------------------------------------
// Persona – who the bot is
// ---------------------------------------------------------------------------

// PersonaConfig shapes the replies and the classification prompt.
type PersonaConfig struct {
	// Name is used in the reply prefix and in filed task descriptions.
	Name                  string           `json:"name" envconfig:"PERSONA_NAME"`
	Instruction           string           `json:"instruction"`
	ClassifierInstruction string           `json:"classifierInstruction"`
	ClassifierPrimer      string           `json:"classifierPrimer"`
	ReplyPrefix           string           `json:"replyPrefix"`
	Examples              []PersonaExample `json:"examples" ignored:"true"`
}

// PersonaExample is one few-shot exchange seeded before the transcript history.
type PersonaExample struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// ---------------------------------------------------------------------------
// Pipeline – dispatcher behaviour
// ---------------------------------------------------------------------------

// PipelineConfig controls how inbound messages are processed.
type PipelineConfig struct {
	// UseHistory selects the history-aware variant. When false the reply is
	// generated without transcript context and sent with Persona.ReplyPrefix.
	UseHistory bool `json:"useHistory" envconfig:"USE_HISTORY"`
	// TranscriptLimit caps how many distinct stored messages are fetched per event (0 = all).
	TranscriptLimit int `json:"transcriptLimit" envconfig:"TRANSCRIPT_LIMIT"`
}

// ---------------------------------------------------------------------------
// Channels – messaging integrations
// ---------------------------------------------------------------------------

// ChannelsConfig contains all channel configurations.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

// WhatsAppConfig configures the WhatsApp channel.
type WhatsAppConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"WHATSAPP_ENABLED"`
	AllowFrom []string `json:"allowFrom"`
	// SelfName overrides the push name used to recognise the bot's own messages.
	SelfName string `json:"selfName" envconfig:"WHATSAPP_SELF_NAME"`
	QRFile   string `json:"qrFile"`
}

// ---------------------------------------------------------------------------
// Providers – generation API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains generation provider configurations.
type ProvidersConfig struct {
	Gemini ProviderConfig `json:"gemini"`
}

// ProviderConfig contains settings for a single provider.
type ProviderConfig struct {
	APIKey string `json:"apiKey" envconfig:"GEMINI_API_KEY"`
}

// ---------------------------------------------------------------------------
// TaskBoard – Trello integration
// ---------------------------------------------------------------------------

// TaskBoardConfig configures where request cards are filed.
type TaskBoardConfig struct {
	Enabled           bool          `json:"enabled" envconfig:"TRELLO_ENABLED"`
	APIBase           string        `json:"apiBase" envconfig:"TRELLO_API_BASE"`
	Key               string        `json:"key" envconfig:"TRELLO_KEY"`
	Token             string        `json:"token" envconfig:"TRELLO_TOKEN"`
	ListID            string        `json:"listId" envconfig:"TRELLO_LIST_ID"`
	RequestsPerSecond float64       `json:"requestsPerSecond"`
	Timeout           time.Duration `json:"timeout"`
}

// ---------------------------------------------------------------------------
// Events – pipeline outcome stream via Kafka
// ---------------------------------------------------------------------------

// EventsConfig contains settings for publishing pipeline outcomes.
type EventsConfig struct {
	Enabled       bool   `json:"enabled" envconfig:"EVENTS_ENABLED"`
	KafkaBrokers  string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic         string `json:"topic" envconfig:"KAFKA_TOPIC"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"KAFKA_CONSUMER_GROUP"`
}

// ---------------------------------------------------------------------------
// Log – structured logging
// ---------------------------------------------------------------------------

// LogConfig selects the slog handler.
type LogConfig struct {
	Level string `json:"level" envconfig:"LOG_LEVEL"`
	JSON  bool   `json:"json" envconfig:"LOG_JSON"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.recepbot",
		},
		Model: ModelConfig{
			Name:                "gemini-1.5-flash",
			Temperature:         1,
			TopP:                0.95,
			TopK:                64,
			MaxTokens:           8192,
			ClassifierMaxTokens: 1024,
			ResponseMIMEType:    "text/plain",
		},
		Persona: PersonaConfig{
			Name:                  "Gemini",
			Instruction:           "Você é minha recepcionista pessoal",
			ClassifierInstruction: "Classifique se a mensagem é uma solicitação ou pedido.",
			ClassifierPrimer:      "Esta é uma solicitação?",
			ReplyPrefix:           "*Gemini:* ",
			Examples:              DefaultPersonaExamples(),
		},
		Pipeline: PipelineConfig{
			UseHistory:      true,
			TranscriptLimit: 50,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				Enabled: true,
			},
		},
		TaskBoard: TaskBoardConfig{
			Enabled:           true,
			APIBase:           "https://api.trello.com/1",
			RequestsPerSecond: 10,
			Timeout:           30 * time.Second,
		},
		Events: EventsConfig{
			Enabled:       false,
			KafkaBrokers:  "localhost:9092",
			Topic:         "recepbot.pipeline",
			ConsumerGroup: "recepbot-tail",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPersonaExamples is the receptionist few-shot dialogue.
func DefaultPersonaExamples() []PersonaExample {
	return []PersonaExample{
		{User: "Quem é Fábio?", Assistant: "Fábio é meu criador\n"},
		{User: "Qual o cargo do Fábio?", Assistant: "O Fábio é Analista de dados"},
		{User: "Quem é você?", Assistant: "Meu nome é Gemini, sou a recepcionista virtual do Fábio"},
		{
			User:      "Posso falar com o Fábio?",
			Assistant: "Infelizmente, eu não posso conectar você diretamente com o Fábio. Ele está bastante ocupado com seu trabalho, mas posso transmitir uma mensagem para ele. Você pode me dizer o que gostaria de falar com ele? Ele vai responder assim que puder\n",
		},
	}
}
