package testinfra

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// KeyType selects the key algorithm of a generated bundle.
type KeyType int

const (
	// KeyECDSA is a P-256 key, accepted by PostgreSQL's OpenSSL.
	KeyECDSA KeyType = iota
	// KeyRSA is a 2048-bit key. Vertica's CREATE KEY only imports RSA.
	KeyRSA
)

const certLifetime = time.Hour

// CertBundle holds a throwaway CA and a server certificate signed by it.
// Keys are PEM encoded PKCS#8, which both PostgreSQL and Vertica read.
type CertBundle struct {
	CACert, CAKey         []byte
	ServerCert, ServerKey []byte
}

type CertPaths struct {
	CACert     string
	ServerCert string
	ServerKey  string
}

// GenerateCertBundle issues an ECDSA bundle for a PostgreSQL server
// reachable as hosts (DNS names or IP literals).
func GenerateCertBundle(hosts []string) (*CertBundle, error) {
	return generateBundle(hosts, KeyECDSA)
}

// GenerateVerticaCertBundle issues an RSA bundle Vertica can import with
// the statements from VerticaTLSStatements.
func GenerateVerticaCertBundle(hosts []string) (*CertBundle, error) {
	return generateBundle(hosts, KeyRSA)
}

func generateBundle(hosts []string, keyType KeyType) (*CertBundle, error) {
	caKey, err := newKey(keyType)
	if err != nil {
		return nil, fmt.Errorf("generate CA key: %w", err)
	}
	caDER, err := issue(&x509.Certificate{
		Subject:               pkix.Name{CommonName: "vload-test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil, caKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("create CA certificate: %w", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, fmt.Errorf("parse CA certificate: %w", err)
	}

	serverKey, err := newKey(keyType)
	if err != nil {
		return nil, fmt.Errorf("generate server key: %w", err)
	}
	server := &x509.Certificate{
		Subject:     pkix.Name{CommonName: "vload-test-server"},
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			server.IPAddresses = append(server.IPAddresses, ip)
		} else {
			server.DNSNames = append(server.DNSNames, h)
		}
	}
	serverDER, err := issue(server, caCert, serverKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("create server certificate: %w", err)
	}

	bundle := &CertBundle{
		CACert:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
		ServerCert: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: serverDER}),
	}
	if bundle.CAKey, err = encodeKey(caKey); err != nil {
		return nil, fmt.Errorf("encode CA key: %w", err)
	}
	if bundle.ServerKey, err = encodeKey(serverKey); err != nil {
		return nil, fmt.Errorf("encode server key: %w", err)
	}
	return bundle, nil
}

func newKey(keyType KeyType) (crypto.Signer, error) {
	if keyType == KeyRSA {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		return key, nil
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// issue signs template with signer. A nil parent self-signs.
func issue(template, parent *x509.Certificate, key, signer crypto.Signer) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}
	template.SerialNumber = serial
	template.NotBefore = time.Now().Add(-5 * time.Minute)
	template.NotAfter = time.Now().Add(certLifetime)
	if parent == nil {
		parent = template
	}
	return x509.CreateCertificate(rand.Reader, template, parent, key.Public(), signer)
}

func encodeKey(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func (b *CertBundle) WriteToDir(dir string) (*CertPaths, error) {
	paths := &CertPaths{
		CACert:     filepath.Join(dir, "ca.crt"),
		ServerCert: filepath.Join(dir, "server.crt"),
		ServerKey:  filepath.Join(dir, "server.key"),
	}

	files := map[string][]byte{
		paths.CACert:     b.CACert,
		paths.ServerCert: b.ServerCert,
		paths.ServerKey:  b.ServerKey,
	}
	for path, data := range files {
		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	return paths, nil
}

// ClientTLSConfig trusts only the bundle's CA and expects serverName.
func (b *CertBundle) ClientTLSConfig(serverName string) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(b.CACert) {
		return nil, errors.New("no CA certificate in bundle")
	}
	return &tls.Config{RootCAs: pool, ServerName: serverName, MinVersion: tls.VersionTLS12}, nil
}

// ServerTLSConfig serves the bundle's server certificate.
func (b *CertBundle) ServerTLSConfig() (*tls.Config, error) {
	cert, err := tls.X509KeyPair(b.ServerCert, b.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("load server key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

// VerticaTLSStatements imports the bundle into Vertica's key store under
// names derived from prefix and makes it the server TLS configuration.
// Requires superuser; the change applies to new connections.
func (b *CertBundle) VerticaTLSStatements(prefix string) []string {
	ca, key, cert := prefix+"_ca", prefix+"_server_key", prefix+"_server"
	return []string{
		fmt.Sprintf("DROP CERTIFICATE IF EXISTS %s CASCADE", cert),
		fmt.Sprintf("DROP CERTIFICATE IF EXISTS %s CASCADE", ca),
		fmt.Sprintf("DROP KEY IF EXISTS %s CASCADE", key),
		fmt.Sprintf("CREATE CA CERTIFICATE %s AS '%s'", ca, b.CACert),
		fmt.Sprintf("CREATE KEY %s TYPE 'RSA' AS '%s'", key, b.ServerKey),
		fmt.Sprintf("CREATE CERTIFICATE %s AS '%s' SIGNED BY %s KEY %s", cert, b.ServerCert, ca, key),
		fmt.Sprintf("ALTER TLS CONFIGURATION server CERTIFICATE %s TLSMODE 'ENABLE'", cert),
	}
}
