package config

import (
	"encoding/json"

	"streambot/internal/app/domain/cooldown"
)

type Config struct {
	App        App                 `json:"app"`
	Proxy      *Proxy              `json:"proxy,omitempty"`
	Commands   map[string]*Command `json:"commands"`
	Counters   map[string]int      `json:"counters"`
	Points     Points              `json:"points"`
	Permit     Permit              `json:"permit"`
	Moderation Moderation          `json:"moderation"`
	Events     Events              `json:"events"`
	Cheer      Cheer               `json:"cheer"`
	TTS        TTS                 `json:"tts"`
	Sound      Sound               `json:"sound"`
	Timers     map[string]*Timer   `json:"timers"`
}

type App struct {
	LogLevel    string   `json:"log_level"`
	LogFile     string   `json:"log_file"`
	GinMode     string   `json:"gin_mode"`
	HTTPAddr    string   `json:"http_addr"`
	AuthToken   string   `json:"auth_token"`
	CertDomains []string `json:"cert_domains"`
	OAuth       string   `json:"oauth"`
	ClientID    string   `json:"client_id"`
	Username    string   `json:"username"`
	Channel     string   `json:"channel"`
	DatabaseURL string   `json:"database_url,omitempty"`
}

type Proxy struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Command is one chat command. Fields absent from the document keep the router fallbacks.
type Command struct {
	Response       string              `json:"response"`
	Type           string              `json:"type"`
	Permission     string              `json:"permission"`
	CooldownGlobal int                 `json:"cooldown_global"`
	CooldownUser   int                 `json:"cooldown_user"`
	BypassMods     bool                `json:"cooldown_bypass_mods"`
	Disabled       bool                `json:"disabled"`
	Min            int                 `json:"min"`
	Max            int                 `json:"max"`
	Options        []string            `json:"options,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
	Sound          string              `json:"sound,omitempty"`
}

func (c *Command) UnmarshalJSON(b []byte) error {
	type plain Command
	p := plain{
		Type:           "static",
		Permission:     "everyone",
		CooldownGlobal: cooldown.FallbackGlobalSeconds,
		CooldownUser:   cooldown.FallbackUserSeconds,
		BypassMods:     true,
		Min:            DefaultRangeMin,
		Max:            DefaultRangeMax,
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Command(p)
	return nil
}

type Points struct {
	Enabled          bool           `json:"enabled"`
	AccrualEnabled   bool           `json:"accrual_enabled"`
	AccrualPerMsg    int            `json:"accrual_per_msg"`
	AccrualCooldownS int            `json:"accrual_cooldown_s"`
	BypassMods       bool           `json:"bypass_mods"`
	MinTransfer      int            `json:"min_transfer"`
	Commands         PointsCommands `json:"commands"`
	Messages         PointsMessages `json:"messages"`
	Store            string         `json:"store"`
	StoreFile        string         `json:"store_file"`
}

type CommandToggle struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type PointsCommands struct {
	Balance CommandToggle `json:"balance"`
	Give    CommandToggle `json:"give"`
	Add     CommandToggle `json:"add"`
	Set     CommandToggle `json:"set"`
}

type PointsMessages struct {
	Balance         string `json:"balance"`
	TransferOK      string `json:"transfer_ok"`
	TransferFail    string `json:"transfer_fail"`
	TransferInvalid string `json:"transfer_invalid"`
	UsageGive       string `json:"usage_give"`
	AddOK           string `json:"add_ok"`
	SetOK           string `json:"set_ok"`
	UsageAdmin      string `json:"usage_admin"`
}

type Permit struct {
	Command        string `json:"command"`
	Seconds        int    `json:"seconds"`
	Uses           int    `json:"uses"`
	MessageEnabled bool   `json:"message_enabled"`
	Message        string `json:"message"`
}

type Moderation struct {
	Enabled              bool     `json:"enabled"`
	BlockLinks           bool     `json:"block_links"`
	BlockWords           bool     `json:"block_words"`
	Blacklist            []string `json:"blacklist"`
	PunishAction         string   `json:"punish_action"`
	TimeoutSeconds       int      `json:"timeout_seconds"`
	PunishMessageEnabled bool     `json:"punish_message_enabled"`
	PunishMessage        string   `json:"punish_message"`
}

type EventMessage struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

type Events struct {
	Enabled       bool                     `json:"enabled"`
	Follow        EventMessage             `json:"follow"`
	Sub           EventMessage             `json:"sub"`
	GiftSub       EventMessage             `json:"gift_sub"`
	Raid          EventMessage             `json:"raid"`
	RewardActions map[string]*RewardAction `json:"reward_actions"`
}

type RewardAction struct {
	Sound   string `json:"sound,omitempty"`
	Message string `json:"message,omitempty"`
}

type Cheer struct {
	AlertEnabled bool   `json:"alert_enabled"`
	Alert        string `json:"alert"`
	TTSEnabled   bool   `json:"tts_enabled"`
	TTSMinBits   int    `json:"tts_min_bits"`
	TTSFormat    string `json:"tts_format"`
}

type TTS struct {
	Enabled    bool   `json:"enabled"`
	RewardName string `json:"reward_name"`
	// Command is the speech program and its arguments; "{text}" is replaced by the text to speak.
	Command   []string `json:"command"`
	QueueSize int      `json:"queue_size"`
}

type Sound struct {
	// Command is the playback program and its arguments; "{path}" is replaced by the file path.
	Command []string `json:"command"`
}

type Timer struct {
	Message     string `json:"message"`
	IntervalMin int    `json:"interval_min"`
	MinLines    int    `json:"min_lines"`
	Disabled    bool   `json:"disabled"`
}

func (t *Timer) UnmarshalJSON(b []byte) error {
	type plain Timer
	p := plain{IntervalMin: DefaultTimerIntervalMin}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Timer(p)
	return nil
}
