package analyzer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// DnsAnalyzer resolves the seed host out-of-band with the platform
// resolver. Best-effort: resolution failures degrade to summary
// warnings, never to crawl failures.
type DnsAnalyzer struct {
	baseAnalyzer
	seedHost string
	resolver *net.Resolver
	timeout  time.Duration
}

func NewDnsAnalyzer() *DnsAnalyzer {
	return &DnsAnalyzer{
		baseAnalyzer: baseAnalyzer{name: NameDns, order: 130},
		resolver:     net.DefaultResolver,
		timeout:      5 * time.Second,
	}
}

// Configure reads the seed host.
func (a *DnsAnalyzer) Configure(cfg config.Config) {
	seed := cfg.SeedURL()
	a.seedHost = seed.Hostname()
}

func (a *DnsAnalyzer) Finalize(st *store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	addrs, err := a.resolver.LookupIPAddr(ctx, a.seedHost)
	if err != nil {
		st.AddSummary(store.SummaryItem{
			Code:    "dns-ipv4",
			Message: fmt.Sprintf("cannot resolve %s: %v", a.seedHost, err),
			Status:  store.StatusWarning,
		})
		return
	}

	var v4, v6 []string
	for _, addr := range addrs {
		if addr.IP.To4() != nil {
			v4 = append(v4, addr.IP.String())
		} else {
			v6 = append(v6, addr.IP.String())
		}
	}

	if len(v4) > 0 {
		st.AddSummary(store.SummaryItem{
			Code:    "dns-ipv4",
			Message: fmt.Sprintf("%s resolves to %s", a.seedHost, strings.Join(v4, ", ")),
			Status:  store.StatusOk,
		})
	} else {
		st.AddSummary(store.SummaryItem{
			Code:    "dns-ipv4",
			Message: fmt.Sprintf("%s has no IPv4 address", a.seedHost),
			Status:  store.StatusNotice,
		})
	}

	if len(v6) > 0 {
		st.AddSummary(store.SummaryItem{
			Code:    "dns-ipv6",
			Message: fmt.Sprintf("%s resolves to %s", a.seedHost, strings.Join(v6, ", ")),
			Status:  store.StatusOk,
		})
	} else {
		st.AddSummary(store.SummaryItem{
			Code:    "dns-ipv6",
			Message: fmt.Sprintf("%s has no IPv6 address", a.seedHost),
			Status:  store.StatusNotice,
		})
	}

	rows := make([]map[string]any, 0, len(addrs))
	for _, addr := range addrs {
		family := "IPv6"
		if addr.IP.To4() != nil {
			family = "IPv4"
		}
		rows = append(rows, map[string]any{
			"host":    a.seedHost,
			"address": addr.IP.String(),
			"family":  family,
		})
	}
	st.AppendTable(store.SuperTable{
		Code:  "dns",
		Title: "DNS resolution",
		Columns: []store.Column{
			{Key: "host", Label: "Host"},
			{Key: "address", Label: "Address"},
			{Key: "family", Label: "Family"},
		},
		Rows:    rows,
		SortKey: "family",
		SortDir: store.SortAsc,
	})
}
