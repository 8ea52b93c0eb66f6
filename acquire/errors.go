package acquire

import (
	"errors"

	"github.com/hazyhaar/licfetch/acquire/internal/catalog"
	"github.com/hazyhaar/licfetch/acquire/internal/download"
	"github.com/hazyhaar/licfetch/acquire/internal/organize"
	"github.com/hazyhaar/licfetch/acquire/internal/portal"
)

var (
	// ErrNavigation: a navigation control was unreachable within the wait.
	ErrNavigation = portal.ErrNavigation
	// ErrSearch: the search form could not be driven.
	ErrSearch = portal.ErrSearch
	// ErrInvalidState: a portal step was attempted out of order.
	ErrInvalidState = portal.ErrInvalidState
	// ErrDocumentUnavailable: the entity has no document of this type.
	ErrDocumentUnavailable = portal.ErrDocumentUnavailable
	// ErrUnknownDocumentType: the id is not in the catalog.
	ErrUnknownDocumentType = catalog.ErrUnknownDocumentType
	// ErrDownloadTimeout: no completed download appeared in time.
	ErrDownloadTimeout = download.ErrDownloadTimeout
	// ErrOrganize: the artifact could not be moved into place.
	ErrOrganize = organize.ErrOrganize
)

// ErrEntityDetailsNotFound is recorded when a search yields no details row.
var ErrEntityDetailsNotFound = errors.New("acquire: entity details not found")
