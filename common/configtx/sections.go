package configtx

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// OrdererGroupKey is the channel group holding the ordering service configuration.
	OrdererGroupKey = "Orderer"

	// BlockValidationPolicyKey names the policy that certifies blocks.
	BlockValidationPolicyKey = "BlockValidation"

	// EndpointsKey names the orderer org value listing orderer addresses.
	EndpointsKey = "Endpoints"

	// OrderersKey names the Orderer group value holding the consenter mapping.
	OrderersKey = "Orderers"

	// DefaultOrdererOrg is the orderer organization group used when none is configured.
	DefaultOrdererOrg = "OrdererOrg"
)

var ordererGroupPath = Path{"channel_group", "groups", OrdererGroupKey}

// Section identifies one of the four orderer sections edited together when a
// consenter is admitted.
type Section int

const (
	SectionEndpoints Section = iota
	SectionIdentities
	SectionRule
	SectionConsenters
)

// Sections lists every section in edit order.
var Sections = []Section{SectionEndpoints, SectionIdentities, SectionRule, SectionConsenters}

func (s Section) String() string {
	switch s {
	case SectionEndpoints:
		return "addresses"
	case SectionIdentities:
		return "block validation identities"
	case SectionRule:
		return "block validation rules"
	case SectionConsenters:
		return "consenter_mapping"
	default:
		return "unknown"
	}
}

// Path returns the location of the section. org names the orderer organization
// group carrying the endpoints.
func (s Section) Path(org string) Path {
	switch s {
	case SectionEndpoints:
		return ordererGroupPath.Child("groups", org, "values", EndpointsKey, "value", "addresses")
	case SectionIdentities:
		return blockValidationPath().Child("identities")
	case SectionRule:
		return blockValidationPath().Child("rule")
	case SectionConsenters:
		return ordererGroupPath.Child("values", OrderersKey, "value", "consenter_mapping")
	default:
		return nil
	}
}

func blockValidationPath() Path {
	return ordererGroupPath.Child("policies", BlockValidationPolicyKey, "policy", "value")
}

// Consenter is one entry of the consenter mapping. Certificates and the identity
// stay in the document's base64 encoding.
type Consenter struct {
	ID            uint32 `mapstructure:"id"`
	Host          string `mapstructure:"host"`
	Port          uint32 `mapstructure:"port"`
	MSPID         string `mapstructure:"msp_id"`
	Identity      string `mapstructure:"identity"`
	ClientTLSCert string `mapstructure:"client_tls_cert"`
	ServerTLSCert string `mapstructure:"server_tls_cert"`
}

// OrdererSections is a typed view of the four sections.
type OrdererSections struct {
	Endpoints []string
	// Identities are MSPPrincipal objects kept as-is so unknown fields survive.
	Identities []*structpb.Struct
	// N is the n_out_of threshold of the block validation rule.
	N int32
	// SignedBy holds the identity index referenced by each sub-rule.
	SignedBy   []int32
	Consenters []*Consenter
}

type nOutOfRule struct {
	NOutOf *struct {
		N     int32 `mapstructure:"n"`
		Rules []struct {
			SignedBy *int32 `mapstructure:"signed_by"`
		} `mapstructure:"rules"`
	} `mapstructure:"n_out_of"`
}

// ReadOrdererSections extracts the four sections from doc. Every section must be
// present and non-empty.
func ReadOrdererSections(doc *Document, org string) (*OrdererSections, error) {
	sections := &OrdererSections{}

	path := SectionEndpoints.Path(org)
	endpoints, err := doc.LookupList(path)
	if err != nil {
		return nil, err
	}
	for i, v := range endpoints {
		addr, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedConfig, "%s[%d] is not a string", path, i)
		}
		sections.Endpoints = append(sections.Endpoints, addr.StringValue)
	}

	path = SectionIdentities.Path(org)
	identities, err := doc.LookupList(path)
	if err != nil {
		return nil, err
	}
	for i, v := range identities {
		id := v.GetStructValue()
		if id == nil {
			return nil, errors.Wrapf(ErrMalformedConfig, "%s[%d] is not an object", path, i)
		}
		sections.Identities = append(sections.Identities, proto.Clone(id).(*structpb.Struct))
	}

	path = SectionRule.Path(org)
	rule, err := doc.LookupStruct(path)
	if err != nil {
		return nil, err
	}
	var decoded nOutOfRule
	if err := mapstructure.WeakDecode(rule.AsMap(), &decoded); err != nil {
		return nil, errors.Wrapf(ErrMalformedConfig, "cannot decode %s: %s", path, err)
	}
	if decoded.NOutOf == nil {
		return nil, errors.Wrapf(ErrMalformedConfig, "%s is not an n_out_of rule", path)
	}
	sections.N = decoded.NOutOf.N
	for i, r := range decoded.NOutOf.Rules {
		if r.SignedBy == nil {
			return nil, errors.Wrapf(ErrMalformedConfig, "%s rule %d is not a signed_by rule", path, i)
		}
		sections.SignedBy = append(sections.SignedBy, *r.SignedBy)
	}

	path = SectionConsenters.Path(org)
	consenters, err := doc.LookupList(path)
	if err != nil {
		return nil, err
	}
	for i, v := range consenters {
		c, err := decodeConsenter(v)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedConfig, "%s[%d]: %s", path, i, err)
		}
		sections.Consenters = append(sections.Consenters, c)
	}

	switch {
	case len(sections.Endpoints) == 0:
		return nil, errors.Wrapf(ErrMalformedConfig, "%s is empty", SectionEndpoints.Path(org))
	case len(sections.Identities) == 0:
		return nil, errors.Wrapf(ErrMalformedConfig, "%s is empty", SectionIdentities.Path(org))
	case len(sections.Consenters) == 0:
		return nil, errors.Wrapf(ErrMalformedConfig, "%s is empty", SectionConsenters.Path(org))
	}

	return sections, nil
}

func decodeConsenter(v *structpb.Value) (*Consenter, error) {
	obj := v.GetStructValue()
	if obj == nil {
		return nil, errors.New("not an object")
	}
	c := &Consenter{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           c,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(obj.AsMap()); err != nil {
		return nil, err
	}
	return c, nil
}

// Value renders one section in document form.
func (s *OrdererSections) Value(section Section) (*structpb.Value, error) {
	switch section {
	case SectionEndpoints:
		values := make([]*structpb.Value, 0, len(s.Endpoints))
		for _, e := range s.Endpoints {
			values = append(values, structpb.NewStringValue(e))
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil

	case SectionIdentities:
		values := make([]*structpb.Value, 0, len(s.Identities))
		for _, id := range s.Identities {
			values = append(values, structpb.NewStructValue(proto.Clone(id).(*structpb.Struct)))
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil

	case SectionRule:
		rules := make([]interface{}, 0, len(s.SignedBy))
		for _, idx := range s.SignedBy {
			rules = append(rules, map[string]interface{}{"signed_by": idx})
		}
		return structpb.NewValue(map[string]interface{}{
			"n_out_of": map[string]interface{}{
				"n":     s.N,
				"rules": rules,
			},
		})

	case SectionConsenters:
		values := make([]interface{}, 0, len(s.Consenters))
		for _, c := range s.Consenters {
			m := map[string]interface{}{}
			if err := mapstructure.Decode(c, &m); err != nil {
				return nil, errors.Wrapf(err, "cannot encode consenter %d", c.ID)
			}
			values = append(values, m)
		}
		return structpb.NewValue(values)
	}

	return nil, errors.Errorf("unknown section %d", section)
}

// WriteOrdererSections replaces the four sections of doc with s.
func WriteOrdererSections(doc *Document, org string, s *OrdererSections) error {
	for _, section := range Sections {
		v, err := s.Value(section)
		if err != nil {
			return err
		}
		if err := doc.Set(section.Path(org), v); err != nil {
			return errors.WithMessagef(err, "cannot write %s", section)
		}
	}
	return nil
}
