package model_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldnotes/relay/internal/model"
)

func TestModel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Model Suite")
}

func seedConversation(n int) *model.Conversation {
	c := model.NewConversation("test", "llama2")
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		c.Append(model.ChatMessage{Role: role, Content: "message"})
	}
	return c
}

var _ = Describe("Conversation.EditAt", func() {
	It("truncates to exactly i+1 messages and replaces the content at i", func() {
		for n := 1; n <= 6; n++ {
			for i := 0; i < n; i++ {
				c := seedConversation(n)
				Expect(c.EditAt(i, "edited")).To(Succeed())
				Expect(c.Messages).To(HaveLen(i + 1))
				Expect(c.Messages[i].Content).To(Equal("edited"))
			}
		}
	})

	It("rejects an out-of-range index", func() {
		c := seedConversation(3)
		Expect(c.EditAt(3, "x")).To(HaveOccurred())
		Expect(c.EditAt(-1, "x")).To(HaveOccurred())
	})

	It("refreshes UpdatedAt", func() {
		c := seedConversation(2)
		before := c.UpdatedAt
		Expect(c.EditAt(0, "x")).To(Succeed())
		Expect(c.UpdatedAt >= before).To(BeTrue())
	})
})

var _ = Describe("Conversation.DeleteAt", func() {
	It("reduces length by exactly one and preserves relative order", func() {
		c := model.NewConversation("t", "m")
		for i := 0; i < 5; i++ {
			c.Append(model.ChatMessage{Role: model.RoleUser, Content: string(rune('a' + i))})
		}
		Expect(c.DeleteAt(2)).To(Succeed())
		Expect(c.Messages).To(HaveLen(4))
		var contents []string
		for _, m := range c.Messages {
			contents = append(contents, m.Content)
		}
		Expect(contents).To(Equal([]string{"a", "b", "d", "e"}))
	})

	It("rejects an out-of-range index", func() {
		c := seedConversation(1)
		Expect(c.DeleteAt(5)).To(HaveOccurred())
	})
})

var _ = Describe("Conversation.Metadata", func() {
	It("previews the first user message, truncated to 50 chars", func() {
		c := model.NewConversation("t", "m")
		c.Append(model.ChatMessage{Role: model.RoleUser, Content: string(make([]byte, 80, 80))})
		md := c.Metadata()
		Expect([]rune(md.Preview)).To(HaveLen(51)) // 50 chars + ellipsis
	})

	It("uses a sentinel preview for an empty conversation", func() {
		c := model.NewConversation("t", "m")
		md := c.Metadata()
		Expect(md.Preview).To(Equal("(no messages)"))
	})

	It("reports the message count", func() {
		c := seedConversation(4)
		Expect(c.Metadata().MessageCount).To(Equal(4))
	})
})

var _ = Describe("RemoteEndpoint.URL", func() {
	It("composes scheme://host:port for http", func() {
		e := model.NewRemoteEndpoint("local", "192.168.1.5", 11434, false)
		Expect(e.URL()).To(Equal("http://192.168.1.5:11434"))
	})

	It("composes scheme://host:port for https", func() {
		e := model.NewRemoteEndpoint("cloud", "example.com", 443, true)
		Expect(e.URL()).To(Equal("https://example.com:443"))
	})
})
