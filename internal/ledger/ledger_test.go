package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

func TestParseEntityID(t *testing.T) {
	id, err := ParseEntityID(" 0.0.1234 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != (EntityID{Num: 1234}) {
		t.Fatalf("unexpected id %+v", id)
	}
	if id.String() != "0.0.1234" {
		t.Fatalf("unexpected string %q", id.String())
	}

	for _, raw := range []string{"", "0.0", "0.0.x", "1.2.3.4", "-1.0.5", "0.0.5-", "0.0.5-VFMKW", "0.0.5-vfm", "0.0.5-vfmkw-abcde"} {
		if _, err := ParseEntityID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		} else if xerrors.CodeOf(err) != xerrors.CodeInvalidInput {
			t.Fatalf("expected INVALID_INPUT for %q, got %s", raw, xerrors.CodeOf(err))
		}
	}
}

func TestParseEntityIDWithChecksum(t *testing.T) {
	plain, err := ParseEntityID("0.0.5")
	if err != nil {
		t.Fatalf("parse plain: %v", err)
	}
	withSum, err := ParseEntityID("0.0.5-vfmkw")
	if err != nil {
		t.Fatalf("parse checksum form: %v", err)
	}
	if plain != withSum || withSum.String() != "0.0.5" {
		t.Fatalf("expected both forms to name 0.0.5, got %+v and %+v", plain, withSum)
	}
}

func TestParseNetwork(t *testing.T) {
	cases := map[string]Network{
		"mainnet": Mainnet,
		"MAINNET": Mainnet,
		"testnet": Testnet,
		"":        Testnet,
		"preview": Testnet,
	}
	for raw, want := range cases {
		if got := ParseNetwork(raw); got != want {
			t.Fatalf("ParseNetwork(%q) = %s, want %s", raw, got, want)
		}
	}
	if Mainnet.MirrorURL() != "https://mainnet.mirrornode.hedera.com" {
		t.Fatalf("unexpected mainnet mirror %s", Mainnet.MirrorURL())
	}
	if Testnet.MirrorURL() != "https://testnet.mirrornode.hedera.com" {
		t.Fatalf("unexpected testnet mirror %s", Testnet.MirrorURL())
	}
}

func TestLoadNetworkDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	content := `networks:
  testnet:
    mirror_url: http://localhost:5551/
    description: local mirror
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	defs, err := LoadNetworkDefinitions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	mirror, relay := defs.Endpoints(Testnet)
	if mirror != "http://localhost:5551" {
		t.Fatalf("unexpected mirror %s", mirror)
	}
	if relay != Testnet.RelayURL() {
		t.Fatalf("relay should fall back to default, got %s", relay)
	}

	mirror, _ = defs.Endpoints(Mainnet)
	if mirror != Mainnet.MirrorURL() {
		t.Fatalf("mainnet should use default mirror, got %s", mirror)
	}

	empty, err := LoadNetworkDefinitions("")
	if err != nil || empty.Networks == nil {
		t.Fatalf("empty path should give empty catalogue: %+v %v", empty, err)
	}
}

func TestUnavailableClientFailsEveryCall(t *testing.T) {
	client := Unavailable("no operator")
	if _, err := client.CreateTopic(context.Background(), "memo"); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}
	if _, err := client.HbarBalance(context.Background()); err == nil || err.Error() == "" {
		t.Fatal("expected balance to fail")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
