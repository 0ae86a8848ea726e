// Package server implements the proof server: a provider.Provider
// behind the network layer of application.ServerBase.
package server

import (
	"context"

	"github.com/smtprovider/smt-provider/application"
	"github.com/smtprovider/smt-provider/protocol"
	"github.com/smtprovider/smt-provider/protocol/provider"
	"github.com/smtprovider/smt-provider/storage"
	"github.com/smtprovider/smt-provider/storage/kv"
)

// A ProofServer represents a proof server.
// It wraps a Provider with a network layer which
// handles requests/responses and their encoding/decoding.
// A ProofServer also supports concurrent handling of requests and
// reloading its policies from the config file.
type ProofServer struct {
	*application.ServerBase
	db       kv.DB
	provider *provider.Provider
	metrics  string
}

// readMethods are accepted by every address.
var readMethods = []string{
	protocol.MethodGetRoot,
	protocol.MethodGetProofByKey,
	protocol.MethodGetProofByKeys,
	protocol.MethodGetProofByKeyWithCondition,
	protocol.MethodGetProofByKeysWithCondition,
	protocol.MethodVerifyProof,
}

// NewProofServer opens the database of conf and creates a proof
// server serving it.
func NewProofServer(conf *Config) (*ProofServer, error) {
	// determine this server's request permissions
	perms := make(map[*application.ServerAddress]map[string]bool)
	for i := 0; i < len(conf.Addresses); i++ {
		addr := conf.Addresses[i]
		perms[addr.ServerAddress] = make(map[string]bool)
		for _, m := range readMethods {
			perms[addr.ServerAddress][m] = true
		}
		for _, m := range protocol.UpdateMethods {
			perms[addr.ServerAddress][m] = addr.AllowUpdates
		}
	}

	db, err := storage.Open(conf.Database)
	if err != nil {
		return nil, err
	}
	p, err := provider.New(db, conf.CacheSize, conf.Policies)
	if err != nil {
		db.Close()
		return nil, err
	}

	// create server instance
	sb, err := application.NewServerBase(conf.CommonConfig, "Listen", perms,
		conf.MaxRequestBytes)
	if err != nil {
		db.Close()
		return nil, err
	}
	p.SetObserver(sb.Metrics())

	return &ProofServer{
		ServerBase: sb,
		db:         db,
		provider:   p,
		metrics:    conf.MetricsAddress,
	}, nil
}

// RegisterSource makes an event source available to
// addTreeFromSource requests under name.
func (server *ProofServer) RegisterSource(name string, src protocol.EventSource) {
	server.provider.RegisterSource(name, src)
}

// HandleRequests passes the decoded params to the appropriate
// provider operation according to the method.
func (server *ProofServer) HandleRequests(ctx context.Context, method string,
	params interface{}) (interface{}, error) {
	p := server.provider
	switch msg := params.(type) {
	case *protocol.AddTreeManuallyParams:
		return p.AddTreeManually(msg)
	case *protocol.AddTreeFromSourceParams:
		return p.AddTreeFromSource(ctx, msg)
	case *protocol.UpdateTreeManuallyParams:
		if err := p.UpdateTreeManually(msg); err != nil {
			return nil, err
		}
		return true, nil
	case *protocol.IndexParams:
		if method == protocol.MethodExtraUpdateTreeFromSource {
			if err := p.ExtraUpdateTreeFromSource(ctx, msg); err != nil {
				return nil, err
			}
			return true, nil
		}
		return p.GetRoot(ctx, msg)
	case *protocol.ProofByKeyParams:
		return p.GetProofByKey(ctx, msg)
	case *protocol.ProofByKeysParams:
		return p.GetProofByKeys(ctx, msg)
	case *protocol.ProofByKeyWithConditionParams:
		return p.GetProofByKeyWithCondition(ctx, msg)
	case *protocol.ProofByKeysWithConditionParams:
		return p.GetProofByKeysWithCondition(ctx, msg)
	case *protocol.VerifyProofParams:
		return p.VerifyProof(msg)
	}
	return nil, protocol.ErrUnknownMethod
}

// Run implements the main functionality of the proof server.
// It listens for all declared connections with corresponding
// permissions.
func (server *ProofServer) Run(addrs []*Address) error {
	hasUpdatePerm := false
	for i := 0; i < len(addrs); i++ {
		addr := addrs[i]
		hasUpdatePerm = hasUpdatePerm || addr.AllowUpdates
		if addr.AllowUpdates {
			server.Verb = "Accepting updates"
		} else {
			server.Verb = "Listen"
		}
		if err := server.ListenAndHandle(addr.ServerAddress, server.HandleRequests); err != nil {
			return err
		}
	}

	if !hasUpdatePerm {
		server.Logger().Warn("None of the addresses permit updates")
	}
	if server.metrics != "" {
		server.ServeMetrics(server.metrics)
	}

	server.RunInBackground(func() {
		server.HotReload(server.updatePolicies)
	})
	return nil
}

// updatePolicies reads the policies from the config file and installs
// them. The old policies stay in place if the file cannot be read.
func (server *ProofServer) updatePolicies() {
	file, encoding := server.ConfigInfo()
	conf := new(Config)
	if err := conf.Load(file, encoding); err != nil {
		// error occured while reading server config
		// simply abort the reloading policies
		// process
		server.Logger().Error(err.Error())
		return
	}
	server.provider.SetPolicies(conf.Policies)
	server.Logger().Info("Policies reloaded!",
		"max_keys_per_request", conf.Policies.MaxKeysPerRequest,
		"max_leaves_per_tree", conf.Policies.MaxLeavesPerTree)
}

// Shutdown stops the server and closes its database.
func (server *ProofServer) Shutdown() error {
	server.ServerBase.Shutdown()
	server.Logger().Sync()
	return server.db.Close()
}
