package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"

	"github.com/pkg/errors"
)

// CA is a certificate authority able to issue node certificates.
type CA struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
}

// NodeCredentials are the PEM encoded certificates of one orderer node.
type NodeCredentials struct {
	Identity   []byte
	ServerCert []byte
	ClientCert []byte
}

// GenerateRootCA 루트 CA 인증서 생성
func GenerateRootCA(orgName string) (*CA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate CA key")
	}

	template := newTemplate("ca."+orgName, orgName, "ca")
	template.IsCA = true
	template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CA certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse CA certificate")
	}
	return &CA{Cert: cert, Key: key}, nil
}

// Issue signs a certificate for commonName with the given extended key usages.
func (ca *CA) Issue(commonName string, orgUnit string, usages ...x509.ExtKeyUsage) (*x509.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key")
	}

	template := newTemplate(commonName, ca.Cert.Subject.Organization[0], orgUnit)
	template.KeyUsage = x509.KeyUsageDigitalSignature
	template.ExtKeyUsage = usages
	template.DNSNames = []string{commonName}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Cert, &key.PublicKey, ca.Key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create certificate for %s", commonName)
	}
	return x509.ParseCertificate(der)
}

// GenerateOrdererCredentials issues the enrollment identity and the TLS server and
// client certificates of an orderer node.
func (ca *CA) GenerateOrdererCredentials(ordererName string) (*NodeCredentials, error) {
	identity, err := ca.Issue(ordererName, "orderer")
	if err != nil {
		return nil, err
	}
	server, err := ca.Issue(ordererName, "orderer", x509.ExtKeyUsageServerAuth)
	if err != nil {
		return nil, err
	}
	client, err := ca.Issue(ordererName, "orderer", x509.ExtKeyUsageClientAuth)
	if err != nil {
		return nil, err
	}

	return &NodeCredentials{
		Identity:   EncodeCertPEM(identity),
		ServerCert: EncodeCertPEM(server),
		ClientCert: EncodeCertPEM(client),
	}, nil
}

// EncodeCertPEM returns the PEM form of cert.
func EncodeCertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func newTemplate(commonName, orgName, orgUnit string) *x509.Certificate {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		serial = big.NewInt(time.Now().UnixNano())
	}
	return &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:         commonName,
			Organization:       []string{orgName},
			OrganizationalUnit: []string{orgUnit},
			Country:            []string{"US"},
			Province:           []string{"CA"},
			Locality:           []string{"San Francisco"},
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour), // 1년
		BasicConstraintsValid: true,
	}
}
