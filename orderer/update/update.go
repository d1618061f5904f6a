package update

import (
	"github.com/ddr4869/bftconfig/common/cert"
	"github.com/ddr4869/bftconfig/common/changelog"
	"github.com/ddr4869/bftconfig/common/configtx"
	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/ddr4869/bftconfig/orderer/consenters"
	"github.com/pkg/errors"
)

// Store loads and persists whole configuration documents.
type Store interface {
	Load(path string) (*configtx.Document, error)
	Save(path string, doc *configtx.Document) error
}

// Recorder records the sections changed by an update.
type Recorder interface {
	Record(changes ...changelog.Change) error
}

// AddConsenterParams are the inputs of one admission.
type AddConsenterParams struct {
	ConfigPath     string
	OutputPath     string
	Address        string
	IdentityPath   string
	ServerCertPath string
	ClientCertPath string
}

func (p *AddConsenterParams) validate() error {
	switch {
	case p.ConfigPath == "":
		return errors.New("config path cannot be empty")
	case p.OutputPath == "":
		return errors.New("updated config path cannot be empty")
	case p.Address == "":
		return errors.New("address cannot be empty")
	case p.IdentityPath == "":
		return errors.New("identity path cannot be empty")
	case p.ServerCertPath == "":
		return errors.New("server certificate path cannot be empty")
	case p.ClientCertPath == "":
		return errors.New("client certificate path cannot be empty")
	}
	return nil
}

// Updater runs an admission from files to files.
type Updater struct {
	Store     Store
	Encoder   cert.Encoder
	Mutator   *consenters.Mutator
	ChangeLog Recorder
}

// AddConsenter loads the configuration, encodes the node credentials, admits the
// node, records the changes and saves the result. The output is written last, so
// a failure at any step leaves it untouched.
func (u *Updater) AddConsenter(p *AddConsenterParams) (*consenters.Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	doc, err := u.Store.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}

	identity, err := u.Encoder.Encode(p.IdentityPath)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode identity")
	}
	serverCert, err := u.Encoder.Encode(p.ServerCertPath)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode server certificate")
	}
	clientCert, err := u.Encoder.Encode(p.ClientCertPath)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode client certificate")
	}

	res, err := u.Mutator.AddConsenter(doc, &consenters.Request{
		Address:       p.Address,
		Identity:      identity,
		ServerTLSCert: serverCert,
		ClientTLSCert: clientCert,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "cannot add consenter %s to %s", p.Address, p.ConfigPath)
	}

	if u.ChangeLog != nil {
		if err := u.ChangeLog.Record(res.Changes...); err != nil {
			return nil, err
		}
	}

	if err := u.Store.Save(p.OutputPath, res.Config); err != nil {
		return nil, err
	}

	logger.Infof("Wrote updated config to %s", p.OutputPath)
	return res, nil
}
