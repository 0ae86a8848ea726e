package cmd

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/smtprovider/smt-provider/application/client"
	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/protocol"
)

type fakeCaller struct {
	method string
	params interface{}
	result interface{}
	err    error
}

func (f *fakeCaller) Call(method string, params interface{}) (interface{}, error) {
	f.method, f.params = method, params
	return f.result, f.err
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line   string
		method string
		params interface{}
	}{
		{"add 8 1=0x01 2=0x02", protocol.MethodAddTreeManually,
			&protocol.AddTreeManuallyParams{Depth: 8, Leaves: protocol.Leaves{"1": "0x01", "2": "0x02"}}},
		{"add 8", protocol.MethodAddTreeManually,
			&protocol.AddTreeManuallyParams{Depth: 8, Leaves: protocol.Leaves{}}},
		{"source 16 deposits", protocol.MethodAddTreeFromSource,
			&protocol.AddTreeFromSourceParams{Depth: 16, Source: "deposits"}},
		{"update 0xab 1=0", protocol.MethodUpdateTreeManually,
			&protocol.UpdateTreeManuallyParams{Index: "0xab", Leaves: protocol.Leaves{"1": "0"}}},
		{"resync 0xab", protocol.MethodExtraUpdateTreeFromSource, &protocol.IndexParams{Index: "0xab"}},
		{"root 0xab", protocol.MethodGetRoot, &protocol.IndexParams{Index: "0xab"}},
		{"prove 0xab 1", protocol.MethodGetProofByKey, &protocol.ProofByKeyParams{Index: "0xab", Key: "1"}},
		{"prove 0xab 1 2", protocol.MethodGetProofByKeys,
			&protocol.ProofByKeysParams{Index: "0xab", Keys: []string{"1", "2"}}},
		{"prove 0xab 1 with 3=0x03", protocol.MethodGetProofByKeyWithCondition,
			&protocol.ProofByKeyWithConditionParams{Index: "0xab", Key: "1", Condition: protocol.Leaves{"3": "0x03"}}},
		{"prove 0xab 1 2 with 3=0x03", protocol.MethodGetProofByKeysWithCondition,
			&protocol.ProofByKeysWithConditionParams{Index: "0xab", Keys: []string{"1", "2"}, Condition: protocol.Leaves{"3": "0x03"}}},
		{"verify 8 1 0x01 0x00", protocol.MethodVerifyProof,
			&protocol.VerifyProofParams{Depth: 8, Key: "1", Value: "0x01", Proof: "0x00"}},
		{"verify 8 1 0x01 0x00 0xff", protocol.MethodVerifyProof,
			&protocol.VerifyProofParams{Depth: 8, Key: "1", Value: "0x01", Proof: "0x00", Root: "0xff"}},
	}
	for _, tt := range tests {
		method, params, err := parseCommand(strings.Fields(tt.line))
		if err != nil {
			t.Errorf("%s: %v", tt.line, err)
			continue
		}
		if method != tt.method || !reflect.DeepEqual(params, tt.params) {
			t.Errorf("%s: got %s %+v", tt.line, method, params)
		}
	}
}

func TestParseBadCommand(t *testing.T) {
	for _, line := range []string{
		"add",
		"add x",
		"add 8 1",
		"source 8",
		"update 0xab",
		"root",
		"prove 0xab",
		"prove 0xab with 1=0x01",
		"prove 0xab 1 with",
		"verify 8 1 0x01",
		"register alice",
	} {
		if _, _, err := parseCommand(strings.Fields(line)); err == nil {
			t.Error("Expect an error for", line)
		}
	}
}

func TestExecute(t *testing.T) {
	root := crypto.DigestHash([]byte("root"))
	c := &fakeCaller{result: &root}
	if out := execute(c, []string{"root", "0x01"}); out != "[+] "+root.Hex() {
		t.Error("Unexpected output", out)
	}
	if c.method != protocol.MethodGetRoot {
		t.Error("Unexpected method", c.method)
	}

	valid := false
	c.result = &protocol.VerifyProofResult{Root: root, Valid: &valid}
	if out := execute(c, strings.Fields("verify 8 1 0x01 0x00 0x02")); !strings.HasSuffix(out, "valid: false") {
		t.Error("Unexpected output", out)
	}

	c.err = &protocol.ErrorObject{Code: protocol.ErrorInvalidParams, Message: "Invalid params", Data: "[protocol] Invalid index"}
	if out := execute(c, []string{"root", "0x01"}); !strings.HasPrefix(out, "[!] Server error") {
		t.Error("Unexpected output", out)
	}
	c.err = errors.New("connection refused")
	if out := execute(c, []string{"root", "0x01"}); !strings.Contains(out, "connection refused") {
		t.Error("Unexpected output", out)
	}
}

func TestMkConfig(t *testing.T) {
	dir := t.TempDir()
	RootCmd.SetArgs([]string{"init", "-d", dir})
	if err := RootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	conf := new(client.Config)
	if err := conf.Load(filepath.Join(dir, "config.toml"), "toml"); err != nil {
		t.Fatal(err)
	}
	if conf.UpdateAddress == "" || conf.CACertPath != filepath.Join(dir, "server.pem") {
		t.Error("Unexpected config", conf.UpdateAddress, conf.CACertPath)
	}
}
