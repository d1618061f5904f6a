package consenters

import (
	"net"
	"strconv"

	"github.com/ddr4869/bftconfig/common/configtx"
	"github.com/ddr4869/bftconfig/common/policies"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidAddress is returned when a node address cannot be split into host and port.
var ErrInvalidAddress = errors.New("invalid address")

// NodeMembership is everything the channel configuration records about one
// ordering node: its endpoint, its block validation identity, the sub-rule that
// references that identity and its consenter mapping entry.
type NodeMembership struct {
	Endpoint  string
	Identity  *structpb.Struct
	SignedBy  int32
	Consenter *configtx.Consenter
}

// Membership is the ordered set of nodes of a BFT ordering service together
// with the block validation quorum derived from its size.
type Membership struct {
	nodes  []*NodeMembership
	quorum int
}

// NewMembership groups the four orderer sections into node units. The sections
// must describe the same nodes in the same order, reference every identity once,
// carry the quorum of the current size and number consenters 1..n.
func NewMembership(s *configtx.OrdererSections) (*Membership, error) {
	n := len(s.Endpoints)
	if len(s.Identities) != n || len(s.SignedBy) != n || len(s.Consenters) != n {
		return nil, errors.Wrapf(configtx.ErrMalformedConfig,
			"section sizes differ: %d endpoints, %d identities, %d rules, %d consenters",
			n, len(s.Identities), len(s.SignedBy), len(s.Consenters))
	}

	quorum, err := policies.ComputeBFTQuorum(n)
	if err != nil {
		return nil, errors.Wrap(configtx.ErrMalformedConfig, err.Error())
	}
	if int(s.N) != quorum {
		return nil, errors.Wrapf(configtx.ErrMalformedConfig,
			"block validation requires %d signatures but %d nodes need %d", s.N, n, quorum)
	}

	referenced := make(map[int32]bool, n)
	for i, idx := range s.SignedBy {
		if idx < 0 || int(idx) >= n {
			return nil, errors.Wrapf(configtx.ErrMalformedConfig, "rule %d references identity %d of %d", i, idx, n)
		}
		if referenced[idx] {
			return nil, errors.Wrapf(configtx.ErrMalformedConfig, "identity %d is referenced by more than one rule", idx)
		}
		referenced[idx] = true
	}

	m := &Membership{quorum: quorum}
	for i := 0; i < n; i++ {
		c := s.Consenters[i]
		if c == nil {
			return nil, errors.Wrapf(configtx.ErrMalformedConfig, "consenter %d in the mapping is empty", i)
		}
		if c.ID != uint32(i+1) {
			return nil, errors.Wrapf(configtx.ErrMalformedConfig, "consenter at position %d has id %d, expected %d", i, c.ID, i+1)
		}
		m.nodes = append(m.nodes, &NodeMembership{
			Endpoint:  s.Endpoints[i],
			Identity:  s.Identities[i],
			SignedBy:  s.SignedBy[i],
			Consenter: c,
		})
	}
	return m, nil
}

// Len returns the number of nodes.
func (m *Membership) Len() int {
	return len(m.nodes)
}

// Quorum returns the number of signatures required to certify a block.
func (m *Membership) Quorum() int {
	return m.quorum
}

// Nodes returns the nodes in admission order.
func (m *Membership) Nodes() []*NodeMembership {
	return append([]*NodeMembership(nil), m.nodes...)
}

// NewNode describes a node to admit. Identity and certificates are already in
// the document's base64 encoding.
type NewNode struct {
	Host          string
	Port          uint32
	Identity      string
	ServerTLSCert string
	ClientTLSCert string
}

// Admit returns a new membership with node appended, and the appended unit. The
// receiver is left untouched.
//
// The endpoint keeps the host of the first existing endpoint and only takes the
// port of the new node, whereas the consenter entry uses the node's own host.
// Identity and MSP ID are templated from the first node.
func (m *Membership) Admit(node *NewNode) (*Membership, *NodeMembership, error) {
	if len(m.nodes) == 0 {
		return nil, nil, errors.Wrap(configtx.ErrMalformedConfig, "cannot admit into an empty membership")
	}
	first := m.nodes[0]
	count := len(m.nodes) + 1

	primaryHost, _, err := net.SplitHostPort(first.Endpoint)
	if err != nil {
		return nil, nil, errors.Wrapf(configtx.ErrMalformedConfig, "first endpoint %q: %s", first.Endpoint, err)
	}

	identity, err := withIDBytes(first.Identity, node.Identity)
	if err != nil {
		return nil, nil, err
	}

	quorum, err := policies.ComputeBFTQuorum(count)
	if err != nil {
		return nil, nil, err
	}

	admitted := &NodeMembership{
		Endpoint: net.JoinHostPort(primaryHost, strconv.FormatUint(uint64(node.Port), 10)),
		Identity: identity,
		SignedBy: int32(count - 1),
		Consenter: &configtx.Consenter{
			ID:            uint32(count),
			Host:          node.Host,
			Port:          node.Port,
			MSPID:         first.Consenter.MSPID,
			Identity:      node.Identity,
			ClientTLSCert: node.ClientTLSCert,
			ServerTLSCert: node.ServerTLSCert,
		},
	}

	next := &Membership{
		nodes:  append(m.Nodes(), admitted),
		quorum: quorum,
	}
	return next, admitted, nil
}

// Sections renders the membership as the four orderer sections.
func (m *Membership) Sections() *configtx.OrdererSections {
	s := &configtx.OrdererSections{N: int32(m.quorum)}
	for _, node := range m.nodes {
		s.Endpoints = append(s.Endpoints, node.Endpoint)
		s.Identities = append(s.Identities, node.Identity)
		s.SignedBy = append(s.SignedBy, node.SignedBy)
		s.Consenters = append(s.Consenters, node.Consenter)
	}
	return s
}

// withIDBytes clones an MSPPrincipal template and swaps its embedded identity.
func withIDBytes(template *structpb.Struct, idBytes string) (*structpb.Struct, error) {
	identity := proto.Clone(template).(*structpb.Struct)
	principal := identity.GetFields()["principal"].GetStructValue()
	if principal == nil {
		return nil, errors.Wrap(configtx.ErrMalformedConfig, "first block validation identity has no principal")
	}
	principal.Fields["id_bytes"] = structpb.NewStringValue(idBytes)
	return identity, nil
}

// ParseAddress splits a host:port address. Both parts are required and the port
// must fit a TCP port.
func ParseAddress(address string) (string, uint32, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, errors.Wrapf(ErrInvalidAddress, "%q: %s", address, err)
	}
	if host == "" {
		return "", 0, errors.Wrapf(ErrInvalidAddress, "%q: missing host", address)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, errors.Wrapf(ErrInvalidAddress, "%q: port must be a number between 1 and 65535", address)
	}
	return host, uint32(port), nil
}
