package ux

import "testing"

func TestTransition(t *testing.T) {
	tests := []struct {
		from    UserMode
		ev      Event
		want    UserMode
		changed bool
	}{
		{ModeAnonymous, EventLocalSave, ModeGuest, true},
		{ModeGuest, EventLocalSave, ModeGuest, false},
		{ModeAuthenticated, EventLocalSave, ModeAuthenticated, false},
		{ModeAnonymous, EventSignIn, ModeAuthenticated, true},
		{ModeGuest, EventSignIn, ModeAuthenticated, true},
		{ModeAuthenticated, EventSignIn, ModeAuthenticated, false},
		{ModeAuthenticated, EventSignOut, ModeGuest, true},
		{ModeGuest, EventSignOut, ModeGuest, false},
		{ModeAnonymous, EventSignOut, ModeAnonymous, false},
	}
	for _, tt := range tests {
		got, changed := Transition(tt.from, tt.ev)
		if got != tt.want || changed != tt.changed {
			t.Fatalf("Transition(%s, %d) = %s, %v; want %s, %v", tt.from, tt.ev, got, changed, tt.want, tt.changed)
		}
	}
}

func TestUserModeString(t *testing.T) {
	if ModeAnonymous.String() != "anonymous" {
		t.Fatalf("expected anonymous")
	}
	if ModeGuest.String() != "guest" {
		t.Fatalf("expected guest")
	}
}
