// Package dataset loads client and service seed data from YAML and upserts
// it into a store.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// Dataset is the YAML document shape:
//
//	clients:
//	  - id: c1
//	    name: Acme
//	    email: ops@acme.test
//	services:
//	  - id: s1
//	    client_id: c1
//	    type: seo
//	    renewal_date: 2026-03-14
type Dataset struct {
	Clients  []storage.Client `yaml:"clients"`
	Services []ServiceRecord  `yaml:"services"`
}

// ServiceRecord is a service as written in a seed file.
type ServiceRecord struct {
	ID          string `yaml:"id"`
	ClientID    string `yaml:"client_id"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	// NotificationsEnabled defaults to true when omitted.
	NotificationsEnabled *bool  `yaml:"notifications_enabled"`
	RenewalDate          string `yaml:"renewal_date"`
}

// Result counts the records written by Import.
type Result struct {
	Clients  int
	Services int
}

// Load decodes and validates a seed document. Unknown keys are rejected.
func Load(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return &ds, nil
		}
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (ds *Dataset) validate() error {
	var errs []error

	clients := make(map[string]struct{}, len(ds.Clients))
	for i, c := range ds.Clients {
		switch {
		case c.ID == "":
			errs = append(errs, fmt.Errorf("clients[%d]: id is required", i))
		case hasKey(clients, c.ID):
			errs = append(errs, fmt.Errorf("clients[%d]: duplicate id %q", i, c.ID))
		default:
			clients[c.ID] = struct{}{}
		}
	}

	services := make(map[string]struct{}, len(ds.Services))
	for i, s := range ds.Services {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Errorf("services[%d]: id is required", i))
		case hasKey(services, s.ID):
			errs = append(errs, fmt.Errorf("services[%d]: duplicate id %q", i, s.ID))
		default:
			services[s.ID] = struct{}{}
		}
		if s.ClientID != "" && !hasKey(clients, s.ClientID) {
			errs = append(errs, fmt.Errorf("services[%d]: unknown client_id %q", i, s.ClientID))
		}
		if _, err := parseStatus(s.Status); err != nil {
			errs = append(errs, fmt.Errorf("services[%d]: %w", i, err))
		}
		if s.RenewalDate != "" {
			if _, err := time.Parse(storage.DateLayout, s.RenewalDate); err != nil {
				errs = append(errs, fmt.Errorf("services[%d]: renewal_date %q must be YYYY-MM-DD", i, s.RenewalDate))
			}
		}
	}
	return errors.Join(errs...)
}

// Service converts the record to its storage form.
func (r ServiceRecord) Service() (storage.Service, error) {
	status, err := parseStatus(r.Status)
	if err != nil {
		return storage.Service{}, err
	}
	svc := storage.Service{
		ID:                   r.ID,
		ClientID:             r.ClientID,
		Type:                 r.Type,
		Description:          r.Description,
		Status:               status,
		NotificationsEnabled: r.NotificationsEnabled == nil || *r.NotificationsEnabled,
	}
	if r.RenewalDate != "" {
		d, err := time.Parse(storage.DateLayout, r.RenewalDate)
		if err != nil {
			return storage.Service{}, fmt.Errorf("parsing renewal_date: %w", err)
		}
		svc.RenewalDate = d
	}
	return svc, nil
}

// Import upserts clients first, then services, stopping at the first error.
func Import(ctx context.Context, store storage.ServiceStore, ds *Dataset) (Result, error) {
	var res Result
	for _, c := range ds.Clients {
		if err := store.UpsertClient(ctx, c); err != nil {
			return res, err
		}
		res.Clients++
	}
	for _, r := range ds.Services {
		svc, err := r.Service()
		if err != nil {
			return res, fmt.Errorf("service %q: %w", r.ID, err)
		}
		if err := store.UpsertService(ctx, svc); err != nil {
			return res, err
		}
		res.Services++
	}
	return res, nil
}

func parseStatus(s string) (storage.ServiceStatus, error) {
	switch st := storage.ServiceStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return storage.ServiceStatusActive, nil
	case storage.ServiceStatusActive, storage.ServiceStatusPaused, storage.ServiceStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
