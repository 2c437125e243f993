// Package lookout provides retrying assertions and actions for browser UI
// tests.
//
// lookout never holds on to DOM nodes. An [Element] or [Collection] is a lazy
// description of how to find something on a page; every read, action, and
// assertion re-queries the browser through a [Session], so tests keep working
// while the page re-renders underneath them.
//
// # Quick Start
//
//	func TestLogin(t *testing.T) {
//		page := lookout.Open(t, session)
//		ctx := t.Context()
//
//		page.Element(lookout.CSS("#user")).SetValue(ctx, "alice")
//		page.Element(lookout.CSS("#login")).Click(ctx)
//		require.NoError(t, page.Element(lookout.CSS(".greeting")).
//			ShouldHave(ctx, lookout.Text("Welcome, alice")))
//	}
//
// # Sessions and Drivers
//
// A [Session] finds elements and returns [Handle] values that read and act on
// them. Driver packages adapt real browser libraries:
//
//   - chromedpdriver for chromedp
//   - roddriver for go-rod
//   - playwrightdriver for playwright-go
//   - seleniumdriver for a W3C WebDriver server
//
// Drivers report failures with [ErrNoSuchElement], [ErrStaleElement],
// [ErrNotInteractable], and [ErrInvalidSelector] so that lookout can decide
// whether to retry. Handles that also implement [Scope] and
// [EventDispatcher] support [Element.SelectOptionByValue],
// [Element.SelectOptionContainingText], and the change event fired by
// [Element.SetValue]; every bundled driver does.
//
// # Waiting and Conditions
//
// Every assertion and action polls until it succeeds or a timeout expires.
// Each poll error is classified by [Classify]:
//
//   - missing, stale, or non-interactable elements are retried, as are
//     driver errors lookout does not recognize
//   - an invalid selector aborts at once with an [InvalidQueryError]
//   - configuration and environment errors and a cancelled context are
//     returned unchanged
//
// [WithClassifier] replaces Classify for one page.
//
// Wait behavior:
//
//   - Defaults: 4s timeout and 100ms poll interval for elements, 6s and
//     200ms for collections
//   - Per-page overrides: [WithTimeout], [WithPollInterval],
//     [WithCollectionsTimeout], [WithCollectionsPollInterval]
//   - Per-call overrides: [WithinTimeout], [WithWaitPollInterval]
//   - Process defaults: LOOKOUT_TIMEOUT and related variables, or
//     [LoadConfig] for a YAML file
//   - At least one poll is made, even with a zero timeout
//
// Element conditions include [Exist], [Visible], [Hidden], [Enabled], [Text],
// [ExactText], [MatchText], [Value], [Attribute], [CSSClass], [Not], [And],
// and [Or]. Collection conditions include [Size], [SizeGreaterThan], [Texts],
// [ExactTexts], [TextsInAnyOrder], and [EmptyCollection].
//
// # Collections
//
// [Collection.Filter], [Collection.Exclude], [Collection.Head],
// [Collection.Tail], [Collection.Get], and [Collection.Find] derive new lazy
// views. Nothing is queried until a view is read or asserted on.
//
// # Soft Assertions
//
// With [WithAssertionMode]([Soft]), failed Should calls are recorded in the
// page's [ErrorsCollector] and return nil. [Open] reports everything recorded
// when the test ends.
//
// # Diagnostics
//
// Failures are [AssertionError] values describing the element, the
// condition, expected and actual values, the last observed element state,
// and the wait timing. Collection text mismatches include a unified diff.
//
// Every top-level call is also reported to the page's [StepLog]; [WithLogger]
// writes those steps to a zap logger.
package lookout
