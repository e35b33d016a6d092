package api

import (
	"github.com/JaimeStill/missive/internal/assembler"
	"github.com/JaimeStill/missive/internal/directory"
	"github.com/JaimeStill/missive/internal/letters"
	"github.com/JaimeStill/missive/internal/notifications"
	"github.com/JaimeStill/missive/internal/templates"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Letters   letters.System
	Directory directory.System
	Templates templates.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	dirSystem := directory.New(db, runtime.Logger)
	templatesSystem := templates.New(db, runtime.Logger)

	var dispatcher notifications.Dispatcher
	if runtime.Broker != nil {
		dispatcher = notifications.NewPublisher(
			runtime.Broker,
			dirSystem,
			&runtime.Letters.Notifications,
			runtime.Logger,
		)
	} else {
		dispatcher = notifications.NewLog(runtime.Logger)
	}

	lettersSystem := letters.New(letters.Deps{
		Store:       letters.NewStore(db),
		Storage:     runtime.Storage,
		Assembler:   assembler.New(&runtime.Letters.Assembler, runtime.Storage, runtime.Logger),
		Templates:   templatesSystem,
		Dispatcher:  dispatcher,
		Logger:      runtime.Logger,
		Pagination:  runtime.Pagination,
		MaxBodySize: runtime.MaxBodySize,
		PublicBase:  runtime.PublicBase,
	})

	return &Domain{
		Letters:   lettersSystem,
		Directory: dirSystem,
		Templates: templatesSystem,
	}
}
