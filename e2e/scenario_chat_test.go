package e2e

import (
	"fmt"
	"net/http"
	"socialchat/infrastructure/indexer"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseChatSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestFanOut_Reaches_Every_Member_Including_Sender() {
	s.Step("Connect three authenticated members")
	a := s.Dial("A", s.Token("a@example.com"))
	b := s.Dial("B", s.Token("b@example.com"))
	c := s.Dial("C", s.Token("c@example.com"))
	s.WaitMembers(3)

	s.Step("A sends a message")
	s.Send(a, "  hello ")

	s.Step("Everyone receives the same live frame")
	for name, conn := range map[string]*websocket.Conn{"A": a, "B": b, "C": c} {
		frame := s.Read(conn)
		s.Equal("hello", frame.Message, name)
		s.Equal("a@example.com", frame.UserEmail, name)
		s.Empty(frame.Timestamp, "live frames carry no timestamp")
		s.Empty(frame.Error, name)
	}
}

func (s *testChatSuite) TestAnonymous_Send_Is_Rejected() {
	s.Step("An anonymous client and an authenticated listener join")
	anonymous := s.Dial("anonymous", "")
	listener := s.Dial("listener", s.Token("b@example.com"))
	s.WaitMembers(2)

	s.Step("The anonymous client tries to send")
	s.Send(anonymous, "let me in")

	s.Step("Only the sender gets an error, nothing is stored")
	s.Equal("Authentication required", s.Read(anonymous).Error)
	s.ExpectSilence(listener, 200*time.Millisecond)
	s.Empty(s.History(50))
}

func (s *testChatSuite) TestEmpty_Message_Is_Rejected_And_Connection_Stays_Open() {
	a := s.Dial("A", s.Token("a@example.com"))
	b := s.Dial("B", s.Token("b@example.com"))
	s.WaitMembers(2)

	s.Step("A sends whitespace only")
	s.Send(a, "   ")
	s.Equal("Message cannot be empty", s.Read(a).Error)
	s.Empty(s.History(50))

	s.Step("A can still chat afterwards")
	s.Send(a, "second try")
	s.Equal("second try", s.Read(a).Message)
	s.Equal("second try", s.Read(b).Message)
}

func (s *testChatSuite) TestMalformed_Frame_Is_Rejected() {
	a := s.Dial("A", s.Token("a@example.com"))
	s.WaitMembers(1)

	s.SendRaw(a, "this is not json")
	s.Equal("Invalid message format", s.Read(a).Error)

	// JSON that is not a message object fails processing instead
	s.SendRaw(a, `["hello"]`)
	s.Equal("An error occurred processing your message", s.Read(a).Error)

	// Unknown fields are ignored
	s.SendRaw(a, `{"message":"ok","extra":true}`)
	s.Equal("ok", s.Read(a).Message)
	s.Len(s.History(50), 1)
}

func (s *testChatSuite) TestHistory_Is_Replayed_Oldest_First_Up_To_The_Limit() {
	s.Step("A posts more messages than the history holds")
	a := s.Dial("A", s.Token("a@example.com"))
	s.WaitMembers(1)
	for i := 1; i <= 55; i++ {
		s.Send(a, fmt.Sprintf("message %d", i))
		s.Equal(fmt.Sprintf("message %d", i), s.Read(a).Message)
	}

	s.Step("A late joiner receives the last 50, oldest first, with timestamps")
	late := s.Dial("late", s.Token("late@example.com"))
	var previous time.Time
	for i := 6; i <= 55; i++ {
		frame := s.Read(late)
		s.Equal(fmt.Sprintf("message %d", i), frame.Message)
		s.Equal("a@example.com", frame.UserEmail)
		at, err := time.Parse(time.RFC3339Nano, frame.Timestamp)
		s.Require().NoError(err)
		s.True(at.After(previous), "timestamps must increase")
		previous = at
	}

	s.Step("Live messages follow the history without a timestamp")
	s.WaitMembers(2)
	s.Send(a, "after history")
	live := s.Read(late)
	s.Equal("after history", live.Message)
	s.Empty(live.Timestamp)
}

func (s *testChatSuite) TestDisconnect_During_Broadcast_Does_Not_Affect_Others() {
	a := s.Dial("A", s.Token("a@example.com"))
	b := s.Dial("B", s.Token("b@example.com"))
	c := s.Dial("C", s.Token("c@example.com"))
	s.WaitMembers(3)

	s.Step("C drops its connection while A keeps sending")
	s.Send(a, "before")
	s.Require().NoError(c.UnderlyingConn().Close())
	for i := 0; i < 10; i++ {
		s.Send(a, fmt.Sprintf("burst %d", i))
	}

	s.Step("B receives everything in order and C leaves the room")
	s.Equal("before", s.Read(b).Message)
	for i := 0; i < 10; i++ {
		s.Equal(fmt.Sprintf("burst %d", i), s.Read(b).Message)
	}
	s.WaitMembers(2)
	s.Len(s.History(50), 11)
}

func (s *testChatSuite) TestInvalid_Token_Is_Refused_At_Handshake() {
	s.Equal(http.StatusUnauthorized, s.DialStatus("not-a-token"))
	s.Zero(s.Stats().Sessions)
}

func (s *testChatSuite) TestSearch_Finds_Posted_Messages() {
	a := s.Dial("A", s.Token("a@example.com"))
	s.WaitMembers(1)
	s.Send(a, "the quick badger jumps")
	s.Send(a, "nothing to see")
	s.Read(a)
	s.Read(a)

	// Indexing happens after delivery, off the send path
	var hits []indexer.Hit
	s.Require().Eventually(func() bool {
		s.GetJSON("/api/messages/search?q=badger", &hits)
		return len(hits) == 1
	}, s.Config.Timeout, 20*time.Millisecond)
	s.Equal("the quick badger jumps", hits[0].Content)
	s.Equal("a@example.com", hits[0].Author)

	stats := s.Stats()
	s.Equal(int64(1), stats.Sessions)
	s.Equal(1, stats.Rooms["1"])
}
