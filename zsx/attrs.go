package zsx

// Attributes read by the engine.
const (
	AttrSwap          = "zx-swap"
	AttrJumpGuard     = "zx-jump-guard"
	AttrLinkMode      = "zx-link-mode"
	AttrScrollTo      = "zx-scroll-to"
	AttrKeep          = "zx-keep"
	AttrSyncParams    = "zx-sync-params"
	AttrPersist       = "zx-persist"
	AttrScriptSkip    = "zx-script-skip"
	AttrCookieSet     = "zx-cookie-set"
	AttrLoader        = "zx-loader"
	AttrDialogConfirm = "zx-dialog-confirm"

	// AttrDataHref holds the target of an app-mode link, whose href is removed.
	AttrDataHref = "data-href"
)

const (
	ClassAppLink     = "zx-link-app"
	SpacerID         = "zeroViewportSpacer"
	EventSwapAfter   = "zsx.zx-swap.after"
	PersistKeyPrefix = "zsx_persist_form_"
)

// listener keys; one per behaviour so re-decoration is a no-op.
const (
	keyLinkClick    = "zsx:link"
	keyFormSubmit   = "zsx:form"
	keyCookieClick  = "zsx:cookie"
	keyPersistInput = "zsx:persist:change"
	keyPersistSave  = "zsx:persist:submit"
)
