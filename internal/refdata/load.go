package refdata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" database/sql driver
	"gopkg.in/yaml.v3"
)

// Options selects the optional sources merged over the built-in tables.
type Options struct {
	// OverlayPath points at a YAML file whose lists extend the defaults.
	OverlayPath string
	// SQLitePath points at a database with a websites(domain) table whose rows
	// are added to the allow-list.
	SQLitePath string
}

// overlay is the on-disk shape of a reference data overlay. Every list accepts
// either a YAML sequence or a comma separated scalar.
type overlay struct {
	AllowList        stringList        `yaml:"allowList"`
	HostingPlatforms stringList        `yaml:"hostingPlatforms"`
	TunnelServices   stringList        `yaml:"tunnelServices"`
	SuspiciousTLDs   stringList        `yaml:"suspiciousTLDs"`
	ParkingTLDs      stringList        `yaml:"parkingTLDs"`
	FreeMail         stringList        `yaml:"freeMailProviders"`
	LureWords        stringList        `yaml:"lureWords"`
	EphemeralWords   stringList        `yaml:"ephemeralWords"`
	CryptoWords      stringList        `yaml:"cryptoWords"`
	Brands           map[string]string `yaml:"brands"`
}

// Load builds a dataset from the defaults, then the YAML overlay, then the
// SQLite allow-list import. Missing optional sources are errors only when a
// path was given.
func Load(ctx context.Context, opts Options) (*Dataset, error) {
	b := newBuilder()

	if opts.OverlayPath != "" {
		ov, err := readOverlay(opts.OverlayPath)
		if err != nil {
			return nil, fmt.Errorf("reference overlay %s: %w", opts.OverlayPath, err)
		}
		b.applyOverlay(ov)
	}

	if opts.SQLitePath != "" {
		domains, err := importAllowList(ctx, opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("allow-list import %s: %w", opts.SQLitePath, err)
		}
		b.allowList = append(b.allowList, domains...)
	}

	return b.build(), nil
}

func readOverlay(path string) (overlay, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return overlay{}, err
	}
	var ov overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return overlay{}, err
	}
	return ov, nil
}

func (b *builder) applyOverlay(ov overlay) {
	b.allowList = append(b.allowList, ov.AllowList...)
	b.hostingPlatforms = append(b.hostingPlatforms, ov.HostingPlatforms...)
	b.suspiciousTLDs = append(b.suspiciousTLDs, ov.SuspiciousTLDs...)
	b.parkingTLDs = append(b.parkingTLDs, ov.ParkingTLDs...)
	b.freeMail = append(b.freeMail, ov.FreeMail...)
	b.ds.TunnelServices = append(b.ds.TunnelServices, ov.TunnelServices...)
	b.ds.LureWords = append(b.ds.LureWords, ov.LureWords...)
	b.ds.EphemeralWords = append(b.ds.EphemeralWords, ov.EphemeralWords...)
	b.ds.CryptoWords = append(b.ds.CryptoWords, ov.CryptoWords...)
	for keyword, domain := range ov.Brands {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		b.manualBrands[keyword] = domain
	}
}

func importAllowList(ctx context.Context, path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT domain FROM websites")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, err
		}
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	return domains, rows.Err()
}

// stringList enables YAML fields that can be specified as a scalar or sequence.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			if v := strings.TrimSpace(node.Value); v != "" {
				out = append(out, v)
			}
		}
		*s = out
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(value.Value, ",") {
			if v := strings.TrimSpace(part); v != "" {
				out = append(out, v)
			}
		}
		*s = out
	default:
		return fmt.Errorf("unsupported YAML type for list")
	}
	return nil
}
