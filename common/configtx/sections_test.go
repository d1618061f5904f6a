package configtx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const ordererJSON = `{
  "channel_group": {
    "groups": {
      "Orderer": {
        "groups": {
          "OrdererOrg": {
            "values": {
              "Endpoints": {"value": {"addresses": ["orderer0.example.com:7050", "orderer0.example.com:7051"]}}
            }
          }
        },
        "policies": {
          "BlockValidation": {
            "policy": {
              "type": 1,
              "value": {
                "identities": [
                  {"principal": {"id_bytes": "aWQw", "mspid": "OrdererMSP"}, "principal_classification": "IDENTITY"},
                  {"principal": {"id_bytes": "aWQx", "mspid": "OrdererMSP"}, "principal_classification": "IDENTITY"}
                ],
                "rule": {"n_out_of": {"n": 2, "rules": [{"signed_by": 0}, {"signed_by": 1}]}},
                "version": 0
              }
            }
          }
        },
        "values": {
          "Orderers": {
            "value": {
              "consenter_mapping": [
                {"client_tls_cert": "YzA=", "host": "orderer0.example.com", "id": 1, "identity": "aWQw", "msp_id": "OrdererMSP", "port": 7050, "server_tls_cert": "czA="},
                {"client_tls_cert": "YzE=", "host": "orderer1.example.com", "id": 2, "identity": "aWQx", "msp_id": "OrdererMSP", "port": "7051", "server_tls_cert": "czE="}
              ]
            }
          }
        }
      }
    }
  }
}`

func TestReadOrdererSections(t *testing.T) {
	doc, err := Unmarshal([]byte(ordererJSON), FormatJSON)
	require.NoError(t, err)

	s, err := ReadOrdererSections(doc, DefaultOrdererOrg)
	require.NoError(t, err)
	require.Equal(t, []string{"orderer0.example.com:7050", "orderer0.example.com:7051"}, s.Endpoints)
	require.Len(t, s.Identities, 2)
	require.Equal(t, "aWQx", s.Identities[1].Fields["principal"].GetStructValue().Fields["id_bytes"].GetStringValue())
	require.Equal(t, int32(2), s.N)
	require.Equal(t, []int32{0, 1}, s.SignedBy)
	require.Equal(t, []*Consenter{
		{ID: 1, Host: "orderer0.example.com", Port: 7050, MSPID: "OrdererMSP", Identity: "aWQw", ClientTLSCert: "YzA=", ServerTLSCert: "czA="},
		{ID: 2, Host: "orderer1.example.com", Port: 7051, MSPID: "OrdererMSP", Identity: "aWQx", ClientTLSCert: "YzE=", ServerTLSCert: "czE="},
	}, s.Consenters)
}

func TestWriteOrdererSections(t *testing.T) {
	doc, err := Unmarshal([]byte(ordererJSON), FormatJSON)
	require.NoError(t, err)

	s, err := ReadOrdererSections(doc, DefaultOrdererOrg)
	require.NoError(t, err)

	working := doc.Clone()
	s.Endpoints = s.Endpoints[:1]
	s.Identities = s.Identities[:1]
	s.SignedBy = s.SignedBy[:1]
	s.Consenters = s.Consenters[:1]
	s.N = 1
	require.NoError(t, WriteOrdererSections(working, DefaultOrdererOrg, s))

	reread, err := ReadOrdererSections(working, DefaultOrdererOrg)
	require.NoError(t, err)
	require.Equal(t, s.Endpoints, reread.Endpoints)
	require.Equal(t, s.SignedBy, reread.SignedBy)
	require.Equal(t, s.Consenters, reread.Consenters)
	require.Equal(t, int32(1), reread.N)

	// the policy type and version next to the rewritten sections survive
	v, err := working.Lookup(Path{"channel_group", "groups", "Orderer", "policies", "BlockValidation", "policy", "type"})
	require.NoError(t, err)
	require.Equal(t, float64(1), v.GetNumberValue())

	_, err = ReadOrdererSections(doc, DefaultOrdererOrg)
	require.NoError(t, err)
	require.False(t, working.Equal(doc))
}

func TestSectionNames(t *testing.T) {
	require.Equal(t, "addresses", SectionEndpoints.String())
	require.Equal(t, "block validation identities", SectionIdentities.String())
	require.Equal(t, "block validation rules", SectionRule.String())
	require.Equal(t, "consenter_mapping", SectionConsenters.String())

	require.Equal(t,
		"channel_group.groups.Orderer.groups.Org2.values.Endpoints.value.addresses",
		SectionEndpoints.Path("Org2").String())
	require.Equal(t,
		"channel_group.groups.Orderer.policies.BlockValidation.policy.value.rule",
		SectionRule.Path("Org2").String())
	require.Equal(t,
		"channel_group.groups.Orderer.values.Orderers.value.consenter_mapping",
		SectionConsenters.Path("Org2").String())
}
