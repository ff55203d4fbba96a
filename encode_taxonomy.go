package trades

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeTaxonomy reads a taxonomy from its JSON representation:
//
//	{
//	  "name": "Asset Classes",
//	  "classifications": [
//	    {"id": "eq", "name": "Equity", "rank": 1, "children": [...],
//	     "assignments": [{"instrument": "US0378331005.XNAS", "weight": 10000}]}
//	  ]
//	}
//
// Weights are in basis points.
func DecodeTaxonomy(filename string, r io.Reader) (*Taxonomy, error) {
	var t Taxonomy
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse error %s: %w", filename, err)
	}
	var err error
	t.Walk(func(c *Classification, _ int) {
		for _, a := range c.Assignments {
			if _, e := ParseID(string(a.Instrument)); e != nil && err == nil {
				err = fmt.Errorf("parse error %s: classification %q: %w", filename, c.Name, e)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("parse error %s: %w", filename, err)
	}
	return &t, nil
}

// LoadTaxonomy reads a taxonomy file.
func LoadTaxonomy(filename string) (*Taxonomy, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open taxonomy %q: %w", filename, err)
	}
	defer f.Close()
	return DecodeTaxonomy(filename, f)
}
