package e2e

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type testDirectMessageSuite struct {
	BaseSuite
}

func TestDirectMessageSuite(t *testing.T) {
	suite.Run(t, &testDirectMessageSuite{})
}

// rosterHasUser checks a roster frame for a given user id.
func rosterHasUser(frame map[string]any, userID string) bool {
	online, ok := frame["online"].([]any)
	if !ok {
		return false
	}
	for _, raw := range online {
		if entry, ok := raw.(map[string]any); ok && entry["userId"] == userID {
			return true
		}
	}
	return false
}

func (s *testDirectMessageSuite) TestFullDirectMessageFlow() {
	alice := s.NewClient()
	bob := s.NewClient()
	defer alice.CloseWS()
	defer bob.CloseWS()

	var aliceID, bobID string

	s.Run("Step 0: Register two fresh accounts", func() {
		s.Step("Registering participants")
		aliceID = alice.Register("alice-")
		bobID = bob.Register("bob-")
		s.Require().NotEqual(aliceID, bobID)
	})

	s.Run("Step 1: Both connect and see each other online", func() {
		s.Step("Opening WebSocket connections")
		alice.Connect()
		bob.Connect()

		alice.AwaitFrame(func(frame map[string]any) bool {
			return rosterHasUser(frame, aliceID) && rosterHasUser(frame, bobID)
		})
		bob.AwaitFrame(func(frame map[string]any) bool {
			return rosterHasUser(frame, aliceID) && rosterHasUser(frame, bobID)
		})
	})

	var messageID string

	s.Run("Step 2: Alice sends, Bob receives live", func() {
		s.Step("Relaying a direct message")
		s.Require().NoError(alice.WS.WriteJSON(map[string]string{
			"recipient": bobID,
			"text":      "hello from the e2e suite",
		}))

		frame := bob.AwaitFrame(func(frame map[string]any) bool {
			id, _ := frame["_id"].(string)
			return id != ""
		})
		s.Require().Equal(aliceID, frame["sender"])
		s.Require().Equal("hello from the e2e suite", frame["text"])
		messageID = frame["_id"].(string)
	})

	s.Run("Step 3: The message is readable from history", func() {
		s.Step("Querying conversation history")
		var conversation struct {
			Messages []struct {
				ID   string `json:"_id"`
				Text string `json:"text"`
			} `json:"messages"`
		}
		status := bob.GetJSON(fmt.Sprintf("/messages/%s", aliceID), &conversation)
		s.Require().Equal(200, status)

		found := false
		for _, m := range conversation.Messages {
			if m.ID == messageID {
				found = true
				s.Require().Equal("hello from the e2e suite", m.Text)
			}
		}
		s.Require().True(found, "relayed message missing from history")
	})

	s.Run("Step 4: Disconnecting drops Bob from the roster", func() {
		s.Step("Closing one side")
		bob.CloseWS()

		alice.AwaitFrame(func(frame map[string]any) bool {
			_, isRoster := frame["online"]
			return isRoster && !rosterHasUser(frame, bobID)
		})
	})
}
