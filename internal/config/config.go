package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Drive     DriveConfig     `mapstructure:"drive"`
	Export    ExportConfig    `mapstructure:"export"`
	Server    ServerConfig    `mapstructure:"server"`

	// Static rule data: agent email -> display name plus the denylists.
	Agents              map[string]string `mapstructure:"agents"`
	BlockedNames        []string          `mapstructure:"blocked_names"`
	BlockedEmailDomains []string          `mapstructure:"blocked_email_domains"`
	StaffAliases        []string          `mapstructure:"staff_aliases"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type GmailConfig struct {
	AccessToken    string   `mapstructure:"access_token"`
	IncludedLabels []string `mapstructure:"included_labels"`
	ExcludedLabels []string `mapstructure:"excluded_labels"`
	MaxResults     int      `mapstructure:"max_results"`
}

type ExtractorConfig struct {
	MinCallInterval    time.Duration `mapstructure:"min_call_interval"`
	MaxRetries         int           `mapstructure:"max_retries"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"`
	SummaryByteCeiling int           `mapstructure:"summary_byte_ceiling"`
	AttachmentsDir     string        `mapstructure:"attachments_dir"`
}

type SlackConfig struct {
	WebhookURL         string  `mapstructure:"webhook_url"`
	HighValueThreshold float64 `mapstructure:"high_value_threshold"`
}

type DriveConfig struct {
	FolderID string `mapstructure:"folder_id"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Load reads the YAML config file, layering environment variables on top.
// A .env file is consumed first so secrets never live in the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment overrides for secrets.
	if key := v.GetString("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if url := v.GetString("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := v.GetString("SLACK_WEBHOOK_URL"); url != "" {
		cfg.Slack.WebhookURL = url
	}
	if token := v.GetString("GMAIL_ACCESS_TOKEN"); token != "" {
		cfg.Gmail.AccessToken = token
	}
	if folder := v.GetString("GOOGLE_DRIVE_FOLDER_ID"); folder != "" {
		cfg.Drive.FolderID = folder
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("gmail.max_results", 100)
	// 30k tokens/min service limit with 15-20k token prompts needs roughly
	// a minute between calls.
	v.SetDefault("extractor.min_call_interval", time.Minute)
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("extractor.backoff_base", 65*time.Second)
	v.SetDefault("extractor.summary_byte_ceiling", 12000)
	v.SetDefault("extractor.attachments_dir", "./attachments")
	v.SetDefault("slack.high_value_threshold", 200.00)
	v.SetDefault("export.dir", "./exports")
	v.SetDefault("server.port", "8080")

	v.SetDefault("gmail.included_labels", []string{
		"processed-sold-deals-using-automation-to-final-label",
		"sold-deal",
		"aca-leads-to-be-worked-working-deal",
		"aca-leads-to-be-worked-working-deal-2nd-attempt",
		"aca-leads-to-be-worked-working-deal-3rd-attempt",
		"sold-deal-paid---sold-deals",
		"ron-deals--aca",
	})
	v.SetDefault("gmail.excluded_labels", []string{
		"aca-leads-to-be-worked-dead-deal",
		"all-wraps-to-be-worked",
	})

	v.SetDefault("agents", map[string]string{
		"danielberman.ushealth@gmail.com":     "Daniel Berman",
		"jordang.ushealth@gmail.com":          "Jordan Gassner",
		"richardodle.ushealth@gmail.com":      "Richard Odle",
		"carlosvarona.ushealth@gmail.com":     "Carlos Varona",
		"miguelgarcia.unitedhealth@gmail.com": "Miguel Garcia",
		"charlie.ushealth@gmail.com":          "Charlie Rios",
		"nick.unitedhealth@gmail.com":         "Nick Salamanca",
	})
	v.SetDefault("blocked_names", []string{
		"christopher shannahan", "chris shannahan", "tanya centore", "sevy",
		"daniel berman", "jordan gassner", "richard odle", "carlos varona",
		"miguel garcia", "charlie rios", "nick salamanca", "nicolas salamanca",
		"health advisor", "insurance agent", "writing agent",
	})
	v.SetDefault("blocked_email_domains", []string{
		"@cjsinsurancesolutions.com",
		"@tdcempoweredhealth.com",
	})
	v.SetDefault("staff_aliases", []string{
		"christopher shannahan", "chris shannahan", "tanya centore", "sevy",
	})
}

func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent mapping is required")
	}
	if c.Extractor.MaxRetries < 1 {
		return fmt.Errorf("extractor.max_retries must be at least 1")
	}
	return nil
}

// AgentDirectory builds the model-level directory from configuration.
func (c *Config) AgentDirectory() model.AgentDirectory {
	dir := make(model.AgentDirectory, len(c.Agents))
	for email, name := range c.Agents {
		dir[email] = name
	}
	return dir
}

// BlockLists builds the model-level denylists from configuration.
func (c *Config) BlockLists() model.BlockLists {
	return model.BlockLists{
		Names:        c.BlockedNames,
		EmailDomains: c.BlockedEmailDomains,
		StaffAliases: c.StaffAliases,
	}
}
