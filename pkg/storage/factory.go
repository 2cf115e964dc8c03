package storage

import (
	"fmt"
	"sort"

	"github.com/yi-nology/mediable/pkg/storage/gcs"
	"github.com/yi-nology/mediable/pkg/storage/local"
	"github.com/yi-nology/mediable/pkg/storage/memory"
	"github.com/yi-nology/mediable/pkg/storage/s3"
	"github.com/yi-nology/mediable/pkg/validator"
)

// Config holds the configuration of one disk.
type Config struct {
	Driver string `yaml:"driver"`
	// Root is the base directory of local disks.
	Root string `yaml:"root"`
	// URL is the public base URL of local and memory disks.
	URL string `yaml:"url"`
	// Public marks the disk as publicly addressable.
	Public bool      `yaml:"public"`
	S3     S3Config  `yaml:"s3"`
	GCS    GCSConfig `yaml:"gcs"`

	MimeTypes  []string `yaml:"mime_types"`
	Extensions []string `yaml:"extensions"`
	MaxSize    int64    `yaml:"max_size"`
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
	URLMode   string `yaml:"url_mode"`
	PublicURL string `yaml:"public_url"`
}

// GCSConfig holds Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
	CDNDomain       string `yaml:"cdn_domain"`
}

// Policy returns the upload policy configured for the disk.
func (c Config) Policy() validator.Policy {
	return validator.Policy{
		MimeTypes:  c.MimeTypes,
		Extensions: c.Extensions,
		MaxSize:    c.MaxSize,
	}
}

// New creates a storage adapter based on configuration.
func New(cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		root := cfg.Root
		if root == "" {
			root = "data/public"
		}
		baseURL := ""
		if cfg.Public {
			baseURL = cfg.URL
		}
		return local.New(root, baseURL)

	case "s3":
		urlMode := cfg.S3.URLMode
		if !cfg.Public {
			urlMode = s3.URLModeNone
		}
		return s3.New(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
			URLMode:   urlMode,
			PublicURL: cfg.S3.PublicURL,
		})

	case "gcs":
		return gcs.New(gcs.Config{
			Bucket:          cfg.GCS.Bucket,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
			CDNDomain:       cfg.GCS.CDNDomain,
			Public:          cfg.Public,
		})

	case "memory":
		baseURL := ""
		if cfg.Public {
			baseURL = cfg.URL
		}
		return memory.New(baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// Disk is a named storage backend with its upload policy.
type Disk struct {
	Storage
	Name   string
	Policy validator.Policy
}

// Manager resolves disks by name.
type Manager struct {
	disks map[string]*Disk
}

// NewManager builds every configured disk.
func NewManager(cfgs map[string]Config) (*Manager, error) {
	m := &Manager{disks: make(map[string]*Disk, len(cfgs))}
	for name, cfg := range cfgs {
		st, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("disk %q: %w", name, err)
		}
		m.Add(name, st, cfg.Policy())
	}
	return m, nil
}

// Add registers or replaces a disk.
func (m *Manager) Add(name string, st Storage, policy validator.Policy) *Disk {
	if m.disks == nil {
		m.disks = make(map[string]*Disk)
	}
	d := &Disk{Storage: st, Name: name, Policy: policy}
	m.disks[name] = d
	return d
}

// Disk returns the disk registered under name.
func (m *Manager) Disk(name string) (*Disk, error) {
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDiskNotFound, name)
	}
	return d, nil
}

// Names lists the configured disk names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.disks))
	for name := range m.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultConfig returns the default disk set: a single public local disk.
func DefaultConfig() map[string]Config {
	return map[string]Config{
		"public": {
			Driver: "local",
			Root:   "data/public",
			URL:    "/storage",
			Public: true,
		},
	}
}
