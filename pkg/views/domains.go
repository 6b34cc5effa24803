package views

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"filterdesk/pkg/domains"
)

// DomainAPI is the part of the settings API behind the allow-list screen.
type DomainAPI interface {
	Domains(ctx context.Context) ([]string, error)
	AddDomain(ctx context.Context, domain string) error
	DeleteDomain(ctx context.Context, domain string) ([]string, error)
}

// DomainList is the approved domains screen.
type DomainList struct {
	api DomainAPI
	log *slog.Logger

	mu      sync.Mutex
	domains []string
}

// NewDomainList creates an empty DomainList.
func NewDomainList(api DomainAPI, log *slog.Logger) *DomainList {
	if log == nil {
		log = slog.Default()
	}
	return &DomainList{api: api, log: log, domains: []string{}}
}

// Reload refetches the approved domains.
func (d *DomainList) Reload(ctx context.Context) error {
	fetched, err := d.api.Domains(ctx)
	if err != nil {
		d.log.Error("error fetching approved domains", "error", err)
		return fmt.Errorf("fetch approved domains: %w", err)
	}
	d.set(fetched)
	return nil
}

// Add approves a domain and reloads the list on success.
func (d *DomainList) Add(ctx context.Context, raw string) error {
	domain, err := domains.Normalize(raw)
	if err != nil {
		return fmt.Errorf("domain %q: %w", raw, err)
	}
	if err := d.api.AddDomain(ctx, domain); err != nil {
		d.log.Error("error adding domain", "domain", domain, "error", err)
		return fmt.Errorf("add domain: %w", err)
	}
	return d.Reload(ctx)
}

// Delete removes a domain. The local list becomes exactly what the server
// returns.
func (d *DomainList) Delete(ctx context.Context, domain string) error {
	remaining, err := d.api.DeleteDomain(ctx, domain)
	if err != nil {
		d.log.Error("error deleting domain", "domain", domain, "error", err)
		return fmt.Errorf("delete domain: %w", err)
	}
	d.set(remaining)
	return nil
}

// Domains returns a copy of the current list.
func (d *DomainList) Domains() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.domains)
}

// Allows reports whether host passes the current allow-list.
func (d *DomainList) Allows(host string) bool {
	return domains.Allowed(d.Domains(), host)
}

func (d *DomainList) set(list []string) {
	if list == nil {
		list = []string{}
	}
	d.mu.Lock()
	d.domains = slices.Clone(list)
	d.mu.Unlock()
}
