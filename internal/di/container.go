package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/adapters/gmail"
	"github.com/mikey/jobmail/internal/adapters/smtpd"
	"github.com/mikey/jobmail/internal/config"
	"github.com/mikey/jobmail/internal/core"
	"github.com/mikey/jobmail/internal/factory"
	"github.com/mikey/jobmail/internal/labels"
	"github.com/mikey/jobmail/internal/logging"
	"github.com/mikey/jobmail/internal/ports"
	"github.com/mikey/jobmail/internal/senderfilter"
	"github.com/mikey/jobmail/internal/utils"
)

// BuildContainer creates and configures a dependency injection container.
// The configuration is built by the caller so command-line overrides can be
// applied before construction. Providers are lazy: a command that only needs
// the ledger never touches the Gmail credentials.
func BuildContainer(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLedgerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register ledger
	if err := container.Provide(func(f *factory.LedgerFactory) (core.Ledger, error) {
		return f.CreateLedger()
	}); err != nil {
		return nil, err
	}

	// Register mailbox
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.Mailbox, error) {
		gmailCfg := cfg.GetGmail()
		return gmail.NewClient(context.Background(), gmailCfg.CredentialsFile, gmailCfg.TokenFile, logger)
	}); err != nil {
		return nil, err
	}

	// Register label cache
	if err := container.Provide(func(mailbox core.Mailbox) *labels.Cache {
		return labels.New(mailbox.GetOrCreateLabel)
	}); err != nil {
		return nil, err
	}

	// Register sender ignore list
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *senderfilter.Filter {
		return senderfilter.New(cfg.GetProcessing().IgnoreSenders, logger)
	}); err != nil {
		return nil, err
	}

	// Register service parameters
	if err := container.Provide(func(cfg *config.Config) core.ServiceParams {
		labelsCfg := cfg.GetLabels()
		processingCfg := cfg.GetProcessing()
		return core.ServiceParams{
			Threshold: cfg.GetClassification().ConfidenceThreshold,
			Labels: core.LabelSet{
				Acknowledged: labelsCfg.Acknowledged,
				Rejected:     labelsCfg.Rejected,
				Followup:     labelsCfg.Followup,
				Jobboard:     labelsCfg.Jobboard,
			},
			Workers: processingCfg.Workers,
			DryRun:  processingCfg.DryRun,
		}
	}); err != nil {
		return nil, err
	}

	// Register processing service
	if err := container.Provide(core.NewService); err != nil {
		return nil, err
	}

	// Register SMTP intake
	if err := container.Provide(func(classifier core.Classifier, ledger core.Ledger, cfg *config.Config, logger *zap.Logger) ports.MailIntake {
		smtpCfg := cfg.GetSMTP()
		return smtpd.NewServer(
			classifier,
			ledger,
			logger,
			smtpCfg.ListenAddress,
			smtpCfg.Domain,
			smtpCfg.RelayEnabled,
			smtpCfg.RelayAddress,
			smtpCfg.RelayPort,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
