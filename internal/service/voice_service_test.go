package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"sonna/internal/ai"
	"sonna/internal/model"
)

// voiceFixture wires a VoiceService onto in-memory stores and fake
// vendors, the way the server wires the real ones.
type voiceFixture struct {
	users  *fakeUserStore
	convs  *fakeConversationStore
	msgs   *fakeMessageStore
	trans  *fakeTranscriber
	gen    *fakeGenerator
	arch   *fakeArchive
	svc    *VoiceService
	userID string
}

func newVoiceFixture(ctx context.Context) (*voiceFixture, error) {
	f := &voiceFixture{
		users: newFakeUserStore(),
		convs: newFakeConversationStore(),
		msgs:  newFakeMessageStore(),
		trans: &fakeTranscriber{},
		gen:   &fakeGenerator{},
		arch:  newFakeArchive(),
	}

	userSvc := NewUserService(f.users, nil, testUserCfg)
	user, err := userSvc.EnsureDefault(ctx)
	if err != nil {
		return nil, err
	}
	f.userID = user.ID

	speech := NewSpeechService(nil, &fakeFallback{synthesizeFunc: func(_ context.Context, text string) ([]byte, error) {
		return []byte("mp3:" + text), nil
	}})

	f.svc = NewVoiceService(userSvc, NewConversationService(f.convs, f.msgs), speech, f.trans, f.gen, f.arch)
	return f, nil
}

func (f *voiceFixture) hears(text string) {
	f.trans.transcribeFunc = func(_ context.Context, _ string, _ io.Reader) (string, error) {
		return text, nil
	}
}

func (f *voiceFixture) replies(text string) {
	f.gen.replyFunc = func(_ context.Context, _ *ai.ReplyRequest) (string, error) {
		return text, nil
	}
}

func TestVoiceServiceFirstTurn(t *testing.T) {
	Convey("the first voice turn runs the full loop", t, func() {
		ctx := context.Background()
		f, err := newVoiceFixture(ctx)
		So(err, ShouldBeNil)
		f.hears("What's the weather like today")
		f.replies("Sunny and warm all afternoon.")

		result, err := f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("audio-bytes"))

		So(err, ShouldBeNil)
		So(result.Transcript, ShouldEqual, "What's the weather like today")
		So(result.ReplyText, ShouldEqual, "Sunny and warm all afternoon.")
		So(result.ConversationID, ShouldNotBeEmpty)
		So(string(result.Audio), ShouldEqual, "mp3:Sunny and warm all afternoon.")
		So(result.Filename, ShouldEqual, "sonna_response.mp3")

		Convey("both sides of the turn are persisted exactly once", func() {
			So(len(f.msgs.msgs), ShouldEqual, 2)
			userMsg, asstMsg := f.msgs.msgs[0], f.msgs.msgs[1]

			So(userMsg.Role, ShouldEqual, model.RoleUser)
			So(userMsg.Content, ShouldEqual, "What's the weather like today")
			So(userMsg.Metadata["source"], ShouldEqual, "voice")
			So(userMsg.ConversationID, ShouldEqual, result.ConversationID)

			So(asstMsg.Role, ShouldEqual, model.RoleAssistant)
			So(asstMsg.Content, ShouldEqual, "Sunny and warm all afternoon.")
			So(asstMsg.Metadata["model"], ShouldEqual, "test-model")
			So(result.MessageID, ShouldEqual, asstMsg.ID)
		})

		Convey("the title is derived from the first utterance", func() {
			So(f.convs.convs[result.ConversationID].Title, ShouldEqual, "What's the weather like today")
		})

		Convey("the activity clock equals the newest message", func() {
			asstMsg := f.msgs.msgs[1]
			So(f.convs.convs[result.ConversationID].UpdatedAt.Equal(asstMsg.CreatedAt), ShouldBeTrue)
		})

		Convey("the generator saw no prior context", func() {
			So(len(f.gen.requests), ShouldEqual, 1)
			So(f.gen.requests[0].History, ShouldBeEmpty)
			So(f.gen.requests[0].Text, ShouldEqual, "What's the weather like today")
		})

		Convey("the recording is archived and linked to the user message", func() {
			userMsg := f.msgs.msgs[0]
			So(len(f.arch.objects), ShouldEqual, 1)
			So(userMsg.AudioPath, ShouldStartWith, "voice/")
			So(userMsg.AudioPath, ShouldEndWith, ".m4a")
			_, ok := f.arch.objects[userMsg.AudioPath]
			So(ok, ShouldBeTrue)
		})
	})
}

func TestVoiceServiceContinuation(t *testing.T) {
	Convey("turns inside the active window resume the conversation", t, func() {
		ctx := context.Background()
		f, err := newVoiceFixture(ctx)
		So(err, ShouldBeNil)

		f.hears("First question")
		f.replies("First answer.")
		first, err := f.svc.ProcessTurn(ctx, "a.m4a", strings.NewReader("x"))
		So(err, ShouldBeNil)

		f.hears("Second question")
		f.replies("Second answer.")
		second, err := f.svc.ProcessTurn(ctx, "b.m4a", strings.NewReader("y"))
		So(err, ShouldBeNil)

		So(second.ConversationID, ShouldEqual, first.ConversationID)
		So(len(f.msgs.msgs), ShouldEqual, 4)

		Convey("the second turn carries the first as context", func() {
			So(len(f.gen.requests), ShouldEqual, 2)
			history := f.gen.requests[1].History
			So(len(history), ShouldEqual, 2)
			So(history[0].Role, ShouldEqual, model.RoleUser)
			So(history[0].Content, ShouldEqual, "First question")
			So(history[1].Role, ShouldEqual, model.RoleAssistant)
			So(history[1].Content, ShouldEqual, "First answer.")
		})

		Convey("the title still comes from the very first utterance", func() {
			So(f.convs.convs[first.ConversationID].Title, ShouldEqual, "First question")
		})
	})
}

func TestVoiceServiceNoSpeech(t *testing.T) {
	Convey("a silent recording asks for a repeat and persists nothing", t, func() {
		ctx := context.Background()
		f, err := newVoiceFixture(ctx)
		So(err, ShouldBeNil)
		f.hears("   ")

		result, err := f.svc.ProcessTurn(ctx, "silence.m4a", strings.NewReader("x"))

		So(err, ShouldBeNil)
		So(result.Transcript, ShouldEqual, NoSpeechReply)
		So(result.ReplyText, ShouldEqual, NoSpeechReply)
		So(result.MessageID, ShouldBeEmpty)
		So(result.ConversationID, ShouldNotBeEmpty)
		So(string(result.Audio), ShouldEqual, "mp3:"+NoSpeechReply)

		So(len(f.msgs.msgs), ShouldEqual, 0)
		So(len(f.gen.requests), ShouldEqual, 0)
		So(len(f.arch.objects), ShouldEqual, 0)
	})
}

func TestVoiceServiceWindowRollover(t *testing.T) {
	Convey("a turn after the active window starts a fresh conversation", t, func() {
		ctx := context.Background()
		f, err := newVoiceFixture(ctx)
		So(err, ShouldBeNil)

		f.hears("First topic")
		f.replies("Noted.")
		first, err := f.svc.ProcessTurn(ctx, "a.m4a", strings.NewReader("x"))
		So(err, ShouldBeNil)

		f.convs.convs[first.ConversationID].UpdatedAt = time.Now().UTC().Add(-3 * time.Hour)

		f.hears("Hello again")
		f.replies("Welcome back.")
		second, err := f.svc.ProcessTurn(ctx, "b.m4a", strings.NewReader("y"))
		So(err, ShouldBeNil)

		So(second.ConversationID, ShouldNotEqual, first.ConversationID)
		So(f.gen.requests[1].History, ShouldBeEmpty)
		So(f.convs.convs[second.ConversationID].Title, ShouldEqual, "Hello again")
		So(f.convs.convs[first.ConversationID].Title, ShouldEqual, "First topic")
	})
}

func TestVoiceServiceGeneratorFallback(t *testing.T) {
	Convey("generation failures degrade to the fixed fallback reply", t, func() {
		ctx := context.Background()

		check := func(genErr error, wantReason string) {
			f, err := newVoiceFixture(ctx)
			So(err, ShouldBeNil)
			f.hears("Tell me something")
			f.gen.replyFunc = func(_ context.Context, _ *ai.ReplyRequest) (string, error) {
				return "", genErr
			}

			result, err := f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("x"))

			So(err, ShouldBeNil)
			So(result.ReplyText, ShouldEqual, ai.FallbackReply)
			So(string(result.Audio), ShouldEqual, "mp3:"+ai.FallbackReply)

			So(len(f.msgs.msgs), ShouldEqual, 2)
			So(f.msgs.msgs[0].Content, ShouldEqual, "Tell me something")
			asst := f.msgs.msgs[1]
			So(asst.Content, ShouldEqual, ai.FallbackReply)
			So(asst.Metadata["fallback_reason"], ShouldEqual, wantReason)
			So(asst.Metadata["model"], ShouldEqual, "test-model")
		}

		Convey("generation disabled", func() {
			check(ai.ErrDisabled, "disabled")
		})

		Convey("model produced no text", func() {
			check(ai.ErrEmptyReply, "empty_reply")
		})

		Convey("transport failure", func() {
			check(errors.New("connection reset"), "error")
		})
	})
}

func TestVoiceServiceFailures(t *testing.T) {
	Convey("hard failures abort the turn", t, func() {
		ctx := context.Background()

		Convey("transcription failure persists nothing", func() {
			f, err := newVoiceFixture(ctx)
			So(err, ShouldBeNil)
			f.trans.transcribeFunc = func(_ context.Context, _ string, _ io.Reader) (string, error) {
				return "", errors.New("whisper down")
			}

			_, err = f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("x"))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "transcribe")
			So(len(f.msgs.msgs), ShouldEqual, 0)
		})

		Convey("speech synthesis failure surfaces after persistence", func() {
			f, err := newVoiceFixture(ctx)
			So(err, ShouldBeNil)
			f.hears("Hi there")
			f.replies("Hello.")
			f.svc.speech = NewSpeechService(nil, &fakeFallback{synthesizeFunc: func(_ context.Context, _ string) ([]byte, error) {
				return nil, errors.New("rate limited")
			}})

			_, err = f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("x"))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "synthesize speech")
			So(len(f.msgs.msgs), ShouldEqual, 2)
		})

		Convey("archive failure never fails the turn", func() {
			f, err := newVoiceFixture(ctx)
			So(err, ShouldBeNil)
			f.hears("Hi there")
			f.replies("Hello.")
			f.arch.uploadErr = errors.New("bucket gone")

			result, err := f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("x"))

			So(err, ShouldBeNil)
			So(result.MessageID, ShouldNotBeEmpty)
			So(f.msgs.msgs[0].AudioPath, ShouldBeEmpty)
			So(len(f.arch.objects), ShouldEqual, 0)
		})

		Convey("unresolved default user aborts before any work", func() {
			f, err := newVoiceFixture(ctx)
			So(err, ShouldBeNil)
			userSvc := NewUserService(newFakeUserStore(), nil, testUserCfg)
			f.svc.users = userSvc

			_, err = f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("x"))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "resolve user")
			So(len(f.convs.convs), ShouldEqual, 0)
		})
	})
}

func TestVoiceServiceProfileContext(t *testing.T) {
	Convey("the generator receives the profile context of the turn", t, func() {
		ctx := context.Background()
		f, err := newVoiceFixture(ctx)
		So(err, ShouldBeNil)
		f.users.users[f.userID].Preferences = map[string]any{
			"timezone":  "Asia/Tokyo",
			"interests": []string{"jazz", "cooking"},
		}
		f.hears("Recommend something")
		f.replies("Try the new jazz bar.")

		_, err = f.svc.ProcessTurn(ctx, "clip.m4a", strings.NewReader("x"))

		So(err, ShouldBeNil)
		req := f.gen.requests[0]
		So(req.Timezone, ShouldEqual, "Asia/Tokyo")
		So(req.Preferences["interests"], ShouldResemble, []string{"jazz", "cooking"})
	})
}

func TestSaveTemp(t *testing.T) {
	Convey("saveTemp spools the upload with the right extension", t, func() {
		Convey("extension follows the uploaded filename", func() {
			path, cleanup, err := saveTemp("clip.wav", strings.NewReader("audio"))
			So(err, ShouldBeNil)
			defer cleanup()

			So(strings.HasSuffix(path, ".wav"), ShouldBeTrue)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "audio")
		})

		Convey("a filename without extension defaults to .m4a", func() {
			path, cleanup, err := saveTemp("blob", strings.NewReader("audio"))
			So(err, ShouldBeNil)
			defer cleanup()

			So(strings.HasSuffix(path, ".m4a"), ShouldBeTrue)
		})

		Convey("cleanup removes the file and is safe to repeat", func() {
			path, cleanup, err := saveTemp("clip.mp3", strings.NewReader("audio"))
			So(err, ShouldBeNil)

			cleanup()
			_, statErr := os.Stat(path)
			So(os.IsNotExist(statErr), ShouldBeTrue)

			So(cleanup, ShouldNotPanic)
		})
	})
}
