package sweep

import (
	"testing"

	"github.com/matryer/is"
)

func TestStatusLabel(t *testing.T) {
	is := is.New(t)
	is.Equal(StatusBlockedBy.Label(), "Blocked By")
	is.Equal(StatusBlocking.Label(), "Blocking")
	is.Equal(StatusDeleted.Label(), "Deleted")
	is.Equal(StatusDeactivated.Label(), "Deactivated")
	is.Equal(StatusSuspended.Label(), "Suspended")
	is.Equal(StatusHidden.Label(), "Hidden")
	is.Equal(StatusYourself.Label(), "Yourself")
	is.Equal(StatusUnknown.Label(), "Unknown")
	is.Equal(RepoStatus(0).Label(), "")
}

func TestStatusLabel_MutualBlock(t *testing.T) {
	is := is.New(t)
	// any combination containing both block flags must render as mutual
	is.Equal(StatusMutualBlock.Label(), "Mutual Block")
	is.Equal((StatusBlockedBy | StatusBlocking).Label(), "Mutual Block")
	is.Equal((StatusMutualBlock | StatusHidden).Label(), "Mutual Block")
}

func TestParseStatus(t *testing.T) {
	is := is.New(t)
	s, ok := ParseStatus("blocked-by")
	is.True(ok)
	is.Equal(s, StatusBlockedBy)
	s, ok = ParseStatus(" Deactivated ")
	is.True(ok)
	is.Equal(s, StatusDeactivated)
	_, ok = ParseStatus("bogus")
	is.True(!ok)
}

func TestDefaultToggles(t *testing.T) {
	is := is.New(t)
	follow := DefaultToggles(ModeFollows)
	is.Equal(len(follow), 7)
	is.True(follow[StatusBlockedBy])
	is.True(follow[StatusYourself])
	is.True(!follow[StatusUnknown])

	block := DefaultToggles(ModeBlocks)
	is.Equal(len(block), 4)
	is.True(block[StatusDeleted])
	is.True(block[StatusDeactivated])
	is.True(block[StatusSuspended])
	is.True(block[StatusUnknown])
	is.True(!block[StatusBlockedBy])
}

func TestToggleApply_ClearsSelection(t *testing.T) {
	is := is.New(t)
	records := []*AccountRecord{
		{Subject: "did:plc:a", Status: StatusDeleted, ToDelete: true},
		{Subject: "did:plc:b", Status: StatusSuspended, ToDelete: true},
		{Subject: "did:plc:c", Status: StatusMutualBlock, ToDelete: true},
	}
	toggles := DefaultToggles(ModeFollows)
	toggles[StatusSuspended] = false
	toggles.Apply(records)

	is.True(records[0].Visible)
	is.True(records[0].ToDelete)
	is.True(!records[1].Visible)
	is.True(!records[1].ToDelete) // hidden records are never left selected
	// mutual block stays visible while either block flag is shown
	is.True(records[2].Visible)

	toggles[StatusBlockedBy] = false
	toggles[StatusBlocking] = false
	toggles.Apply(records)
	is.True(!records[2].Visible)
	is.True(!records[2].ToDelete)
}

func TestModeCollection(t *testing.T) {
	is := is.New(t)
	is.Equal(string(ModeFollows.Collection()), "app.bsky.graph.follow")
	is.Equal(string(ModeBlocks.Collection()), "app.bsky.graph.block")
}
