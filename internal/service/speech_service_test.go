package service

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"sonna/internal/pkg/tts"
)

func TestSpeechServiceSpeak(t *testing.T) {
	Convey("Speak renders text to audio with graceful degradation", t, func() {
		ctx := context.Background()

		Convey("primary voice wins when it succeeds", func() {
			primary := &fakePrimary{synthesizeFunc: func(_ context.Context, text string) (*tts.Result, error) {
				return &tts.Result{AudioData: []byte("volcano:" + text), Duration: 1.2}, nil
			}}
			fallback := &fakeFallback{}
			svc := NewSpeechService(primary, fallback)

			result, err := svc.Speak(ctx, "hello there")

			So(err, ShouldBeNil)
			So(string(result.Audio), ShouldEqual, "volcano:hello there")
			So(result.Filename, ShouldEqual, "sonna_output.mp3")
			So(result.Provider, ShouldEqual, "volcano")
		})

		Convey("primary failure degrades to the fallback voice", func() {
			primary := &fakePrimary{synthesizeFunc: func(_ context.Context, _ string) (*tts.Result, error) {
				return nil, errors.New("cluster unavailable")
			}}
			var fallbackText string
			fallback := &fakeFallback{synthesizeFunc: func(_ context.Context, text string) ([]byte, error) {
				fallbackText = text
				return []byte("gtts audio"), nil
			}}
			svc := NewSpeechService(primary, fallback)

			result, err := svc.Speak(ctx, "hello there")

			So(err, ShouldBeNil)
			So(string(result.Audio), ShouldEqual, "gtts audio")
			So(result.Filename, ShouldEqual, "sonna_response.mp3")
			So(result.Provider, ShouldEqual, "gtts")
			So(fallbackText, ShouldEqual, "hello there")
		})

		Convey("no primary configured goes straight to the fallback", func() {
			fallback := &fakeFallback{synthesizeFunc: func(_ context.Context, _ string) ([]byte, error) {
				return []byte("gtts audio"), nil
			}}
			svc := NewSpeechService(nil, fallback)

			result, err := svc.Speak(ctx, "hello")

			So(err, ShouldBeNil)
			So(result.Provider, ShouldEqual, "gtts")
		})

		Convey("both voices failing is an error", func() {
			primary := &fakePrimary{synthesizeFunc: func(_ context.Context, _ string) (*tts.Result, error) {
				return nil, errors.New("cluster unavailable")
			}}
			fallback := &fakeFallback{synthesizeFunc: func(_ context.Context, _ string) ([]byte, error) {
				return nil, errors.New("rate limited")
			}}
			svc := NewSpeechService(primary, fallback)

			_, err := svc.Speak(ctx, "hello")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "speech synthesis failed")
		})
	})
}
