package consenters

import (
	"github.com/ddr4869/bftconfig/common/changelog"
	"github.com/ddr4869/bftconfig/common/configtx"
	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/pkg/errors"
)

// Request asks for one node to be admitted into the ordering service.
type Request struct {
	// Address is the host:port of the new node.
	Address string
	// Identity, ServerTLSCert and ClientTLSCert are base64 encoded credentials.
	Identity      string
	ServerTLSCert string
	ClientTLSCert string
}

// Result is the outcome of a successful admission.
type Result struct {
	// Config is the updated document. The input document is left as it was.
	Config *configtx.Document
	// Node is the admitted node.
	Node *NodeMembership
	// Membership is the membership after admission.
	Membership *Membership
	// Changes holds one entry per edited section, in edit order.
	Changes []changelog.Change
}

// Mutator edits the orderer sections of channel configurations.
type Mutator struct {
	// OrdererOrg names the orderer organization group carrying the endpoints.
	OrdererOrg string
}

// NewMutator returns a Mutator for the given orderer organization, or for
// configtx.DefaultOrdererOrg when org is empty.
func NewMutator(org string) *Mutator {
	if org == "" {
		org = configtx.DefaultOrdererOrg
	}
	return &Mutator{OrdererOrg: org}
}

// AddConsenter admits the node described by req into the BFT ordering service
// configured by doc. The endpoint list, the block validation identities and rule
// and the consenter mapping are updated together on a copy of doc; on error no
// document is returned and doc is unchanged.
func (m *Mutator) AddConsenter(doc *configtx.Document, req *Request) (*Result, error) {
	if doc == nil {
		return nil, errors.Wrap(configtx.ErrMalformedConfig, "no config document")
	}
	if req == nil {
		return nil, errors.New("no request")
	}

	host, port, err := ParseAddress(req.Address)
	if err != nil {
		return nil, err
	}

	working := doc.Clone()

	before, err := configtx.ReadOrdererSections(working, m.OrdererOrg)
	if err != nil {
		return nil, err
	}
	current, err := NewMembership(before)
	if err != nil {
		return nil, err
	}

	next, admitted, err := current.Admit(&NewNode{
		Host:          host,
		Port:          port,
		Identity:      req.Identity,
		ServerTLSCert: req.ServerTLSCert,
		ClientTLSCert: req.ClientTLSCert,
	})
	if err != nil {
		return nil, err
	}

	after := next.Sections()
	if err := configtx.WriteOrdererSections(working, m.OrdererOrg, after); err != nil {
		return nil, err
	}

	changes, err := sectionChanges(before, after)
	if err != nil {
		return nil, err
	}

	logger.Infof("Admitted consenter %d (%s, endpoint %s); block validation quorum is now %d of %d",
		admitted.Consenter.ID, req.Address, admitted.Endpoint, next.Quorum(), next.Len())

	return &Result{
		Config:     working,
		Node:       admitted,
		Membership: next,
		Changes:    changes,
	}, nil
}

// Validate reads the orderer sections of doc and checks that they describe a
// consistent BFT membership.
func Validate(doc *configtx.Document, org string) (*Membership, error) {
	if org == "" {
		org = configtx.DefaultOrdererOrg
	}
	sections, err := configtx.ReadOrdererSections(doc, org)
	if err != nil {
		return nil, err
	}
	return NewMembership(sections)
}

func sectionChanges(before, after *configtx.OrdererSections) ([]changelog.Change, error) {
	var changes []changelog.Change
	for _, section := range configtx.Sections {
		b, err := before.Value(section)
		if err != nil {
			return nil, err
		}
		a, err := after.Value(section)
		if err != nil {
			return nil, err
		}
		changes = append(changes, changelog.Change{
			Section: section.String(),
			Before:  b.AsInterface(),
			After:   a.AsInterface(),
		})
	}
	return changes, nil
}
