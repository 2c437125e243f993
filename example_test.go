package lookout_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cboone/lookout"
	"github.com/cboone/lookout/internal/fakedriver"
)

func ExampleOpen() {
	_ = func(t *testing.T, session lookout.Session) {
		page := lookout.Open(t, session,
			lookout.WithTimeout(10*time.Second),
			lookout.WithAssertionMode(lookout.Soft),
		)
		_ = page.Element(lookout.CSS("h1")).ShouldHave(t.Context(), lookout.Text("Welcome"))
	}
}

func ExampleCollection_Filter() {
	s := fakedriver.New()
	items := fakedriver.Texts("Apples", "Bananas", "Cherries")
	items[1].SetHidden(true)
	s.Set(lookout.CSS("li"), items...)

	page := lookout.New(s)
	shown := page.Elements(lookout.CSS("li")).Filter(lookout.Visible)

	texts, err := shown.Texts(context.Background())
	fmt.Println(shown, texts, err)
	// Output: $$("li").Filter(visible) [Apples Cherries] <nil>
}

func ExampleElement_ShouldHave() {
	s := fakedriver.New()
	s.Set(lookout.CSS("#status"), fakedriver.NewElement("p", "Saved", "id", "status"))

	page := lookout.New(s, lookout.WithTimeout(50*time.Millisecond))
	status := page.Element(lookout.CSS("#status"))

	fmt.Println(status.ShouldHave(context.Background(), lookout.Text("saved")))

	err := status.ShouldHave(context.Background(), lookout.ExactText("Error"))
	fmt.Println(errors.Is(err, lookout.ErrConditionUnmet))
	// Output:
	// <nil>
	// true
}

func ExampleClassify() {
	fmt.Println(lookout.Classify(lookout.ErrStaleElement))
	fmt.Println(lookout.Classify(lookout.ErrInvalidSelector))
	fmt.Println(lookout.Classify(context.Canceled))
	// Output:
	// retry
	// abort
	// propagate
}
