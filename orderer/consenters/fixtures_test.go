package consenters

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"testing"

	"github.com/ddr4869/bftconfig/common/configtx"
	"github.com/stretchr/testify/require"
)

func encoded(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// configMap builds a channel config whose orderer sections describe one node per
// endpoint, consistent with every membership invariant.
func configMap(t *testing.T, endpoints ...string) map[string]interface{} {
	var (
		addresses  []interface{}
		identities []interface{}
		rules      []interface{}
		mapping    []interface{}
	)
	for i, endpoint := range endpoints {
		host, port, err := net.SplitHostPort(endpoint)
		require.NoError(t, err)
		p, err := strconv.Atoi(port)
		require.NoError(t, err)

		id := encoded(fmt.Sprintf("identity-%d", i))
		addresses = append(addresses, endpoint)
		identities = append(identities, map[string]interface{}{
			"principal": map[string]interface{}{
				"id_bytes": id,
				"mspid":    "OrdererMSP",
			},
			"principal_classification": "IDENTITY",
		})
		rules = append(rules, map[string]interface{}{"signed_by": i})
		mapping = append(mapping, map[string]interface{}{
			"client_tls_cert": encoded(fmt.Sprintf("client-%d", i)),
			"host":            host,
			"id":              i + 1,
			"identity":        id,
			"msp_id":          "OrdererMSP",
			"port":            p,
			"server_tls_cert": encoded(fmt.Sprintf("server-%d", i)),
		})
	}

	quorum := 0
	if n := len(endpoints); n > 0 {
		quorum = (n + (n-1)/3 + 2) / 2
	}

	return map[string]interface{}{
		"channel_group": map[string]interface{}{
			"groups": map[string]interface{}{
				"Application": map[string]interface{}{
					"groups":     map[string]interface{}{"Org1MSP": map[string]interface{}{"mod_policy": "Admins"}},
					"mod_policy": "Admins",
					"version":    "1",
				},
				"Orderer": map[string]interface{}{
					"groups": map[string]interface{}{
						"OrdererOrg": map[string]interface{}{
							"mod_policy": "Admins",
							"values": map[string]interface{}{
								"Endpoints": map[string]interface{}{
									"mod_policy": "Admins",
									"value":      map[string]interface{}{"addresses": addresses},
									"version":    "0",
								},
							},
						},
					},
					"policies": map[string]interface{}{
						"BlockValidation": map[string]interface{}{
							"mod_policy": "Admins",
							"policy": map[string]interface{}{
								"type": 1,
								"value": map[string]interface{}{
									"identities": identities,
									"rule": map[string]interface{}{
										"n_out_of": map[string]interface{}{
											"n":     quorum,
											"rules": rules,
										},
									},
									"version": 0,
								},
							},
							"version": "0",
						},
					},
					"values": map[string]interface{}{
						"BatchSize": map[string]interface{}{
							"value": map[string]interface{}{"absolute_max_bytes": 103809024, "max_message_count": 10},
						},
						"Orderers": map[string]interface{}{
							"mod_policy": "/Channel/Orderer/Admins",
							"value":      map[string]interface{}{"consenter_mapping": mapping},
							"version":    "0",
						},
					},
				},
			},
			"mod_policy": "Admins",
		},
		"sequence": "3",
	}
}

func newDocument(t *testing.T, m map[string]interface{}) *configtx.Document {
	doc, err := configtx.NewDocument(m)
	require.NoError(t, err)
	return doc
}

func lookup(t *testing.T, doc *configtx.Document, path configtx.Path) interface{} {
	v, err := doc.Lookup(path)
	require.NoError(t, err)
	return v.AsInterface()
}

// remove deletes the key at path from a config map.
func remove(m map[string]interface{}, path ...string) {
	for _, key := range path[:len(path)-1] {
		m = m[key].(map[string]interface{})
	}
	delete(m, path[len(path)-1])
}

// child returns the object at path of a config map.
func child(m map[string]interface{}, path ...string) map[string]interface{} {
	for _, key := range path {
		m = m[key].(map[string]interface{})
	}
	return m
}
