package keyring

import (
	"context"
	"errors"
	"testing"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

func newTestKeyring(t *testing.T) *Keyring {
	t.Helper()
	return New(t.TempDir())
}

func TestGenerateAndLoad(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	key, err := kr.Generate(ctx, "work")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(key.PublicKey) != PublicKeyHexLength {
		t.Errorf("PublicKey length = %d", len(key.PublicKey))
	}

	byAlias, err := kr.Load(ctx, "work")
	if err != nil {
		t.Fatalf("Load by alias: %v", err)
	}
	if byAlias.PublicKey != key.PublicKey {
		t.Errorf("loaded %s, want %s", byAlias.PublicKey, key.PublicKey)
	}

	byHex, err := kr.Load(ctx, key.PublicKey)
	if err != nil {
		t.Fatalf("Load by hex: %v", err)
	}
	if !identity.Equal(byHex.ID(), key.ID()) {
		t.Error("hex load returned a different key")
	}
}

func TestLoadMissing(t *testing.T) {
	kr := newTestKeyring(t)

	_, err := kr.Load(context.Background(), "nope")
	if !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("Load = %v, want ErrAliasNotFound", err)
	}
}

func TestDefault(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	if _, err := kr.LoadDefault(ctx); !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNoDefault) {
		t.Errorf("LoadDefault on empty keyring = %v", err)
	}

	key, err := kr.Generate(ctx, "main")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := kr.SetDefault("main"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	def, err := kr.LoadDefault(ctx)
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if def.PublicKey != key.PublicKey {
		t.Errorf("default = %s, want %s", def.PublicKey, key.PublicKey)
	}

	if err := kr.SetDefault("absent"); !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("SetDefault on unknown alias = %v, want ErrAliasNotFound", err)
	}
}

func TestSetAlias(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	key, err := kr.Generate(ctx, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := kr.SetAlias("nickname", key.PublicKey); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	loaded, err := kr.Load(ctx, "nickname")
	if err != nil {
		t.Fatalf("Load by new alias: %v", err)
	}
	if loaded.PublicKey != key.PublicKey {
		t.Error("alias points at the wrong key")
	}

	if err := kr.SetAlias("ghost", "00ff"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAlias to unknown key = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	infos, err := kr.List(ctx)
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List on empty keyring = %d entries", len(infos))
	}

	if _, err := kr.Generate(ctx, "one"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := kr.Generate(ctx, "two"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := kr.SetDefault("one"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	infos, err = kr.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List = %d entries, want 2", len(infos))
	}

	defaults := 0
	for _, info := range infos {
		if info.IsDefault {
			defaults++
			if len(info.Aliases) != 1 || info.Aliases[0] != "one" {
				t.Errorf("default key aliases = %v", info.Aliases)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("default count = %d, want 1", defaults)
	}
}

func TestDelete(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	key, err := kr.Generate(ctx, "doomed")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := kr.SetDefault("doomed"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	if err := kr.Delete(ctx, "doomed"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := kr.Load(ctx, key.PublicKey); err == nil {
		t.Error("Load of a deleted key succeeded")
	}
	if _, err := kr.LoadDefault(ctx); !errors.Is(err, ErrNoDefault) {
		t.Errorf("LoadDefault after delete = %v, want ErrNoDefault", err)
	}
}

func TestImport(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	orig, err := kr.Generate(ctx, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	other := New(t.TempDir())
	imported, err := other.Import(ctx, orig.Keypair.Seed(), "moved")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.PublicKey != orig.PublicKey {
		t.Errorf("imported key = %s, want %s", imported.PublicKey, orig.PublicKey)
	}
}

func TestLoadOrGenerate(t *testing.T) {
	kr := newTestKeyring(t)
	ctx := context.Background()

	first, err := kr.LoadOrGenerate(ctx, DefaultAlias)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	second, err := kr.LoadOrGenerate(ctx, DefaultAlias)
	if err != nil {
		t.Fatalf("LoadOrGenerate again: %v", err)
	}
	if first.PublicKey != second.PublicKey {
		t.Error("LoadOrGenerate regenerated an existing key")
	}
}
