// Package testcerts writes a throwaway certificate authority plus server and
// client key pairs in the layout expected by the transport package. It is
// meant for tests only.
package testcerts

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// File names, kept in sync with the transport package.
const (
	caCertFile       = "ca_cert.pem"
	serverCertFile   = "server_cert.pem"
	serverKeyFile    = "server_key.pem"
	clientCertFile   = "client_cert.pem"
	clientKeyFile    = "client_key.pem"
	clientCACertFile = "client_ca_cert.pem"
)

type keyPair struct {
	cert *x509.Certificate
	der  []byte
	key  *ecdsa.PrivateKey
}

// Write creates a new CA in dir and issues a server certificate for
// serverName (plus localhost and 127.0.0.1) and a client certificate, both
// signed by it. The CA certificate is written both as the server trust root
// and as the client trust root.
func Write(dir, serverName string) error {
	ca, err := newKeyPair(&x509.Certificate{
		Subject:               pkix.Name{CommonName: "streambench test CA"},
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}, nil)
	if err != nil {
		return err
	}
	server, err := newKeyPair(&x509.Certificate{
		Subject:     pkix.Name{CommonName: serverName},
		DNSNames:    []string{serverName, "localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}, ca)
	if err != nil {
		return err
	}
	client, err := newKeyPair(&x509.Certificate{
		Subject:     pkix.Name{CommonName: "streambench test client"},
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}, ca)
	if err != nil {
		return err
	}

	for _, f := range []struct {
		name  string
		write func(string) error
	}{
		{caCertFile, ca.writeCert},
		{clientCACertFile, ca.writeCert},
		{serverCertFile, server.writeCert},
		{serverKeyFile, server.writeKey},
		{clientCertFile, client.writeCert},
		{clientKeyFile, client.writeKey},
	} {
		if err := f.write(filepath.Join(dir, f.name)); err != nil {
			return err
		}
	}
	return nil
}

func newKeyPair(tmpl *x509.Certificate, parent *keyPair) (*keyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	if tmpl.SerialNumber, err = rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62)); err != nil {
		return nil, err
	}
	tmpl.NotBefore = time.Now().Add(-time.Hour)
	tmpl.NotAfter = time.Now().Add(24 * time.Hour)

	parentCert, parentKey := tmpl, key
	if parent != nil {
		parentCert, parentKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentCert, &key.PublicKey, parentKey)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &keyPair{cert: cert, der: der, key: key}, nil
}

func (k *keyPair) writeCert(path string) error {
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: k.der}), 0o600)
}

func (k *keyPair) writeKey(path string) error {
	der, err := x509.MarshalECPrivateKey(k.key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600)
}
