package referral

import (
	"fmt"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildShareLink(t *testing.T) {
	Convey("Given an origin and a sponsor id", t, func() {
		const origin = "https://coach.example.app"

		Convey("When no shop is given", func() {
			link := BuildShareLink(origin, "123-4567890", "")

			Convey("Then the simple form is emitted", func() {
				So(link, ShouldEqual, origin+"?ref=123-4567890")
				So(ShareLinkForm(""), ShouldEqual, FormSimple)
			})
		})

		Convey("When a whitespace-only shop is given", func() {
			So(BuildShareLink(origin, "123-4567890", "   "), ShouldEqual, origin+"?ref=123-4567890")
		})

		Convey("When a shop is given", func() {
			link := BuildShareLink(origin, "123-4567890", "  "+testShop+"  ")
			u, err := url.Parse(link)
			So(err, ShouldBeNil)

			Convey("Then the welcome form carries the encoded shop", func() {
				So(u.Query().Get("ref"), ShouldEqual, "123-4567890")
				So(u.Query().Get("mode"), ShouldEqual, "welcome")
				So(u.Query().Get("shop"), ShouldNotBeEmpty)
				So(ShareLinkForm(testShop), ShouldEqual, FormShop)
			})

			Convey("Then resolving it recovers the shop byte for byte", func() {
				ctx := NewResolver().Resolve(u.RawQuery, "")
				So(ctx.Source, ShouldEqual, SourceCompound)
				So(ctx.ShopURL, ShouldEqual, "  "+testShop+"  ")
			})
		})
	})
}

func TestShareLinkRoundTrip(t *testing.T) {
	Convey("Given a range of sponsor ids and shops", t, func() {
		r := NewResolver()
		shops := []string{
			"",
			"https://shopneolife.com/a/shop/atoz",
			"https://shopneolife.com/a/shop/atoz?x=>>>&y=~~~",
			"https://www.shopneolife.com/sébastien/shop",
			" https://shopneolife.com/padded\t",
		}

		for i := 0; i < 40; i++ {
			id := fmt.Sprintf("%03d-%07d", i*7%1000, i*7919%10_000_000)
			if id == DefaultFounderID {
				continue
			}
			for _, shop := range shops {
				link := BuildShareLink("https://coach.example.app/", id, shop)
				u, err := url.Parse(link)
				So(err, ShouldBeNil)

				ctx := r.Resolve(u.RawQuery, u.Fragment)
				So(ctx.ID, ShouldEqual, id)
				So(ctx.IsReferral, ShouldBeTrue)
				if shop == "" {
					So(ctx.Source, ShouldEqual, SourceQuery)
					So(ctx.ShopURL, ShouldEqual, DefaultShopBase+"?id="+id)
				} else {
					So(ctx.Source, ShouldEqual, SourceCompound)
					So(ctx.ShopURL, ShouldEqual, shop)
				}
			}
		}

		Convey("Then alphanumeric ids round-trip as well", func() {
			for _, id := range []string{"abc123", "Z9", "leader42"} {
				u, err := url.Parse(BuildShareLink("https://x.test", id, ""))
				So(err, ShouldBeNil)
				So(r.Resolve(u.RawQuery, "").ID, ShouldEqual, id)
			}
		})
	})
}

func TestBuildProspectLink(t *testing.T) {
	Convey("Given a prospect link id", t, func() {
		link := BuildProspectLink("https://coach.example.app", "123-4567890", "123-4567890-1700000000000-ab12cd34")

		Convey("Then the link carries both the prospect and the sponsor", func() {
			So(link, ShouldEqual, "https://coach.example.app?prospect=123-4567890-1700000000000-ab12cd34&ref=123-4567890")
		})

		Convey("Then it resolves to the sponsor", func() {
			u, _ := url.Parse(link)
			So(NewResolver().Resolve(u.RawQuery, "").ID, ShouldEqual, "123-4567890")
		})
	})
}

func TestValidateID(t *testing.T) {
	Convey("Given candidate distributor ids", t, func() {
		valid := []string{"067-2922111", "000-0000000", "999-9999999"}
		invalid := []string{"", "0672922111", "67-2922111", "067-292211", "067-29221111", "abc-defghij", " 067-2922111", "067-2922111\n", "٠٦٧-٢٩٢٢١١١"}

		Convey("Then only DDD-DDDDDDD passes", func() {
			for _, id := range valid {
				So(ValidateID(id), ShouldBeTrue)
			}
			for _, id := range invalid {
				So(ValidateID(id), ShouldBeFalse)
			}
		})
	})
}
