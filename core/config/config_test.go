package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/triage/core/config"
)

var _ = Describe("Load", func() {
	restore := func(key string) {
		prev, had := os.LookupEnv(key)
		DeferCleanup(func() {
			if had {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}
	setenv := func(key, value string) {
		restore(key)
		Expect(os.Setenv(key, value)).To(Succeed())
	}
	unsetenv := func(key string) {
		restore(key)
		Expect(os.Unsetenv(key)).To(Succeed())
	}

	Context("in production", func() {
		BeforeEach(func() {
			setenv("TRIAGE_ENV", "production")
			for _, key := range []string{
				"GITHUB_WEBHOOK_SECRET", "GITHUB_TOKEN", "GITHUB_APP_ID",
				"CLASSIFIER_LLM_API_KEY", "TRANSLATOR_LLM_API_KEY", "TRIAGE_DRAIN_TIMEOUT",
				"CLASSIFIER_LLM_TIMEOUT", "TRANSLATOR_LLM_MAX_RETRIES", "CLASSIFIER_LLM_PROVIDER",
			} {
				unsetenv(key)
			}
		})

		It("reports every missing requirement", func() {
			_, err := config.Load()
			Expect(err).To(MatchError(ContainSubstring("GITHUB_WEBHOOK_SECRET")))
			Expect(err).To(MatchError(ContainSubstring("GITHUB_TOKEN")))
			Expect(err).To(MatchError(ContainSubstring("CLASSIFIER_LLM_API_KEY")))
		})

		It("loads a complete configuration with defaults", func() {
			setenv("GITHUB_WEBHOOK_SECRET", "s")
			setenv("GITHUB_TOKEN", "t")
			setenv("CLASSIFIER_LLM_API_KEY", "k")
			setenv("TRIAGE_DRAIN_TIMEOUT", "45s")
			setenv("TRANSLATOR_LLM_MAX_RETRIES", "0")

			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.IsProduction()).To(BeTrue())
			Expect(cfg.TranslatorLLM.APIKey).To(Equal("k"))
			Expect(cfg.Triage.DrainTimeout).To(Equal(45 * time.Second))
			Expect(cfg.Triage.MaxComments).To(BeNumerically(">", 0))
			Expect(cfg.ClassifierLLM.Timeout).To(Equal(60 * time.Second))
			Expect(cfg.TranslatorLLM.MaxRetries).To(Equal(0))
			Expect(cfg.OTel.Environment).To(Equal("production"))
			Expect(cfg.AllowUnsignedWebhooks()).To(BeFalse())
		})

		It("does not hand an Anthropic key to the translator", func() {
			setenv("GITHUB_WEBHOOK_SECRET", "s")
			setenv("GITHUB_TOKEN", "t")
			setenv("CLASSIFIER_LLM_PROVIDER", "anthropic")
			setenv("CLASSIFIER_LLM_API_KEY", "sk-ant")

			_, err := config.Load()
			Expect(err).To(MatchError(ContainSubstring("TRANSLATOR_LLM_API_KEY")))

			setenv("TRANSLATOR_LLM_API_KEY", "sk-openai")
			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.TranslatorLLM.APIKey).To(Equal("sk-openai"))
		})
	})

	It("does not require credentials in development", func() {
		setenv("TRIAGE_ENV", "development")
		unsetenv("GITHUB_WEBHOOK_SECRET")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.IsDevelopment()).To(BeTrue())
		Expect(cfg.AllowUnsignedWebhooks()).To(BeTrue())
	})

	It("keeps signature checks when development is only the fallback", func() {
		unsetenv("TRIAGE_ENV")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.IsDevelopment()).To(BeTrue())
		Expect(cfg.AllowUnsignedWebhooks()).To(BeFalse())
	})
})
