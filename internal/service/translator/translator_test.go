package translator_test

import (
	"context"
	"encoding/json"
	"errors"

	"basegraph.app/triage/common/llm"
	"basegraph.app/triage/internal/service/translator"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeChatClient struct {
	reply string
	err   error
	last  llm.Request
	calls int
}

func (f *fakeChatClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{}, json.Unmarshal([]byte(f.reply), result)
}

func (f *fakeChatClient) Model() string { return "fake" }

var _ = Describe("Translator", func() {
	var (
		ctx    context.Context
		client *fakeChatClient
		t      translator.Translator
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeChatClient{}
		t = translator.New(client)
	})

	It("returns the trimmed translation", func() {
		client.reply = `{"translatedText": "  Build fails on Windows \n"}`

		out, err := t.Translate(ctx, "La compilation échoue sous Windows", "fr", "en")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Build fails on Windows"))
		Expect(client.last.UserPrompt).To(Equal("La compilation échoue sous Windows"))
		Expect(client.last.SystemPrompt).To(ContainSubstring(`"fr"`))
		Expect(client.last.Schema).NotTo(BeNil())
		Expect(*client.last.Temperature).To(BeZero())
	})

	It("does not call the model for blank text", func() {
		out, err := t.Translate(ctx, "   ", "fr", "en")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
		Expect(client.calls).To(BeZero())
	})

	It("wraps transport failures", func() {
		client.err = errors.New("boom")

		_, err := t.Translate(ctx, "Titel", "de", "en")
		Expect(err).To(MatchError(ContainSubstring("translating de to en")))
	})
})
