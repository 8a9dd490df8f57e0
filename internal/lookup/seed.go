package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// ErrInvalidSeed is returned for seed documents with unusable records.
var ErrInvalidSeed = errors.New("invalid seed")

type seedFile struct {
	Records []models.PassengerRecord `yaml:"records"`
}

// LoadSeed decodes a YAML document of the form
//
//	records:
//	  - pnr: AB1234
//	    last_name: DOE
//	    first_name: JOHN
//	    departure_at: 2025-01-02T09:30:00Z
func LoadSeed(r io.Reader) ([]models.PassengerRecord, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	for i := range f.Records {
		rec := &f.Records[i]
		rec.PNR = strings.ToUpper(strings.TrimSpace(rec.PNR))
		if rec.PNR == "" || rec.LastName == "" {
			return nil, fmt.Errorf("%w: record %d needs pnr and last_name", ErrInvalidSeed, i)
		}
	}
	return f.Records, nil
}

// SeedFile loads path into p and returns the number of records written.
func SeedFile(ctx context.Context, p *SQLiteProvider, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	records, err := LoadSeed(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := p.Upsert(ctx, records...); err != nil {
		return 0, err
	}
	return len(records), nil
}
