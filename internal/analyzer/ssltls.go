package analyzer

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// certificate expiry window that triggers a warning
const certExpiryWarning = 30 * 24 * time.Hour

// SslTlsAnalyzer probes the seed origin with a raw TLS handshake and
// reports protocol version and certificate health. Out-of-band and
// best-effort; HTTP-only seeds deactivate it.
type SslTlsAnalyzer struct {
	baseAnalyzer
	host    string
	port    string
	timeout time.Duration
	// dial opens the TLS connection for the probe
	dial func(network, addr string, cfg *tls.Config) (*tls.Conn, error)
}

func NewSslTlsAnalyzer() *SslTlsAnalyzer {
	return &SslTlsAnalyzer{
		baseAnalyzer: baseAnalyzer{name: NameSslTls, order: 140},
		timeout:      5 * time.Second,
		dial: func(network, addr string, cfg *tls.Config) (*tls.Conn, error) {
			dialer := &net.Dialer{Timeout: 5 * time.Second}
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
	}
}

func (a *SslTlsAnalyzer) ShouldBeActivated(cfg config.Config) bool {
	seed := cfg.SeedURL()
	return seed.Scheme == "https"
}

// Configure reads the seed origin.
func (a *SslTlsAnalyzer) Configure(cfg config.Config) {
	seed := cfg.SeedURL()
	a.host = seed.Hostname()
	a.port = seed.Port()
	if a.port == "" {
		a.port = "443"
	}
}

func (a *SslTlsAnalyzer) Finalize(st *store.Store) {
	conn, err := a.dial("tcp", net.JoinHostPort(a.host, a.port), &tls.Config{
		ServerName: a.host,
		MinVersion: tls.VersionTLS10,
	})
	if err != nil {
		st.AddSummary(store.SummaryItem{
			Code:    NameSslTls,
			Message: fmt.Sprintf("TLS handshake with %s failed: %v", a.host, err),
			Status:  store.StatusCritical,
		})
		return
	}
	defer conn.Close()

	state := conn.ConnectionState()
	version := tls.VersionName(state.Version)

	versionStatus := store.StatusOk
	if state.Version < tls.VersionTLS12 {
		versionStatus = store.StatusWarning
	}
	st.AddSummary(store.SummaryItem{
		Code:    NameSslTls,
		Message: fmt.Sprintf("%s negotiates %s", a.host, version),
		Status:  versionStatus,
	})

	if len(state.PeerCertificates) == 0 {
		return
	}
	leaf := state.PeerCertificates[0]
	remaining := time.Until(leaf.NotAfter)

	certStatus := store.StatusOk
	certMessage := fmt.Sprintf("certificate valid until %s", leaf.NotAfter.UTC().Format("2006-01-02"))
	switch {
	case remaining <= 0:
		certStatus = store.StatusCritical
		certMessage = "certificate has expired"
	case remaining < certExpiryWarning:
		certStatus = store.StatusWarning
		certMessage = fmt.Sprintf("certificate expires in %d days", int(remaining.Hours()/24))
	}
	st.AddSummary(store.SummaryItem{
		Code:    "ssl-certificate",
		Message: certMessage,
		Status:  certStatus,
	})

	st.AppendTable(store.SuperTable{
		Code:  "ssl-tls",
		Title: "TLS probe",
		Columns: []store.Column{
			{Key: "host", Label: "Host"},
			{Key: "version", Label: "Version"},
			{Key: "cipher", Label: "Cipher"},
			{Key: "issuer", Label: "Issuer"},
			{Key: "notAfter", Label: "Expires"},
		},
		Rows: []map[string]any{{
			"host":     a.host,
			"version":  version,
			"cipher":   tls.CipherSuiteName(state.CipherSuite),
			"issuer":   leaf.Issuer.CommonName,
			"notAfter": leaf.NotAfter.UTC().Format(time.RFC3339),
		}},
		SortKey: "host",
		SortDir: store.SortAsc,
	})
}
