package platform

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestCleanMentions(t *testing.T) {
	mentions := []*discordgo.User{
		{ID: "111", Username: "Arius"},
		{ID: "222", Username: "Ligi"},
	}
	cases := map[string]string{
		"VTL <@111>":           "VTL Arius",
		"VTL <@!111>":          "VTL Arius",
		"<@222> and <@111>":    "Ligi and Arius",
		"no mentions here":     "no mentions here",
		"<@333> unknown stays": "<@333> unknown stays",
	}
	for in, want := range cases {
		if got := CleanMentions(in, mentions); got != want {
			t.Errorf("CleanMentions(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayTag(t *testing.T) {
	legacy := &discordgo.User{Username: "arius", Discriminator: "5544"}
	if got := DisplayTag(legacy); got != "arius#5544" {
		t.Errorf("DisplayTag(legacy) = %q", got)
	}
	migrated := &discordgo.User{Username: "arius", Discriminator: "0"}
	if got := DisplayTag(migrated); got != "arius" {
		t.Errorf("DisplayTag(migrated) = %q", got)
	}
}

func TestStripMention(t *testing.T) {
	cases := map[string]string{
		"<@111>":     "111",
		"<@!111>":    "111",
		"<@&222>":    "222",
		"<#333>":     "333",
		"  <#333>  ": "333",
		"plain-name": "plain-name",
		"444":        "444",
	}
	for in, want := range cases {
		if got := StripMention(in); got != want {
			t.Errorf("StripMention(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemberHasRole(t *testing.T) {
	m := Member{RoleIDs: []string{"1", "2"}}
	if !m.HasRole("2") || m.HasRole("3") {
		t.Errorf("HasRole misbehaves: %+v", m)
	}
}

func TestOverwriteConversion(t *testing.T) {
	in := []Overwrite{
		{PrincipalID: "1", Kind: PrincipalRole, Allow: PermView, Deny: PermSend},
		{PrincipalID: "2", Kind: PrincipalMember, Allow: PermView | PermSend},
	}
	out := toOverwrites(in)
	if len(out) != 2 {
		t.Fatalf("got %d overwrites, want 2", len(out))
	}
	if out[0].Type != discordgo.PermissionOverwriteTypeRole || out[0].Deny != int64(PermSend) {
		t.Errorf("role overwrite mismapped: %+v", out[0])
	}
	if out[1].Type != discordgo.PermissionOverwriteTypeMember || out[1].Allow != int64(PermView|PermSend) {
		t.Errorf("member overwrite mismapped: %+v", out[1])
	}
}

func TestPermissionMaskAssignsToOverwrite(t *testing.T) {
	// A combined mask built with := must carry the Overwrite field type.
	mask := PermView | PermSend | PermAddReactions |
		PermEmbedLinks | PermHistory | PermAttachFiles
	o := Overwrite{PrincipalID: "1", Kind: PrincipalMember, Allow: mask}
	for _, bit := range []int64{PermView, PermSend, PermAddReactions, PermEmbedLinks, PermHistory, PermAttachFiles} {
		if o.Allow&bit == 0 {
			t.Errorf("mask missing bit %d", bit)
		}
	}
}

func TestRoleByIDUnconfigured(t *testing.T) {
	d := &Discord{}
	if _, err := d.RoleByID(context.Background(), "g1", ""); err == nil {
		t.Fatal("expected error for unconfigured role ID")
	}
}
