package user

import "testing"

func TestSession_CurrentStartsEmpty(t *testing.T) {
	s := NewSession()

	uid, ok := s.Current()
	if ok || uid != "" {
		t.Errorf("Current = (%q, %v), want empty", uid, ok)
	}
}

func TestSession_SignInNotifiesSubscribers(t *testing.T) {
	s := NewSession()

	var events []string
	s.OnChange(func(uid string, signedIn bool) {
		if signedIn {
			events = append(events, "in:"+uid)
		} else {
			events = append(events, "out")
		}
	})

	s.SignIn("u1")
	s.SignOut()
	s.SignIn("u2")

	uid, ok := s.Current()
	if !ok || uid != "u2" {
		t.Errorf("Current = (%q, %v), want u2", uid, ok)
	}
	want := []string{"in:u1", "out", "in:u2"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestSession_RepeatedSignInIsSilent(t *testing.T) {
	s := NewSession()

	var calls int
	s.OnChange(func(string, bool) { calls++ })

	s.SignIn("u1")
	s.SignIn("u1")
	s.SignOut()
	s.SignOut()

	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}

func TestSession_SubscribersRunInOrder(t *testing.T) {
	s := NewSession()

	var order []int
	s.OnChange(func(string, bool) { order = append(order, 1) })
	s.OnChange(func(string, bool) { order = append(order, 2) })

	s.SignIn("u1")

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}
