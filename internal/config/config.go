package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

const (
	DefaultStorageBucket = "room-images"
	DefaultFallbackKey   = "dev_rooms"
)

type Config struct {
	ServerAddr         string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	JWTSecret          []byte
	DatabaseDSN        string
	RedisAddr          string
	StorageBucket      string
	FallbackKey        string
	AllowedOrigins     []string
	StrictOwnerGate    bool
}

// Options carries the raw, unvalidated values NewConfig builds a Config from.
type Options struct {
	ServerAddr         string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	Base64JWTSecret    string
	DatabaseDSN        string
	RedisAddr          string
	StorageBucket      string
	AllowedOrigins     []string
	StrictOwnerGate    bool
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(opts Options) (*Config, error) {
	if opts.ServerAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if opts.SupabaseURL == "" {
		return nil, fmt.Errorf("supabase url cannot be empty")
	}
	if u, err := url.Parse(opts.SupabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase url %q is not an absolute url", opts.SupabaseURL)
	}
	if opts.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("supabase anon key cannot be empty")
	}

	var secret []byte
	if opts.Base64JWTSecret != "" {
		var err error
		secret, err = decodeSigningSecret(opts.Base64JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("decode jwt secret: %w", err)
		}
	}

	bucket := opts.StorageBucket
	if bucket == "" {
		bucket = DefaultStorageBucket
	}

	return &Config{
		ServerAddr:         opts.ServerAddr,
		SupabaseURL:        opts.SupabaseURL,
		SupabaseAnonKey:    opts.SupabaseAnonKey,
		SupabaseServiceKey: opts.SupabaseServiceKey,
		JWTSecret:          secret,
		DatabaseDSN:        opts.DatabaseDSN,
		RedisAddr:          opts.RedisAddr,
		StorageBucket:      bucket,
		FallbackKey:        DefaultFallbackKey,
		AllowedOrigins:     opts.AllowedOrigins,
		StrictOwnerGate:    opts.StrictOwnerGate,
	}, nil
}
