package provider

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
)

// testAccProtoV6ProviderFactories is used to instantiate a provider during acceptance testing.
// The factory function is called for each Terraform CLI command to create a provider
// server that the CLI can connect to and interact with.
var testAccProtoV6ProviderFactories = map[string]func() (tfprotov6.ProviderServer, error){
	"persondir": providerserver.NewProtocol6WithError(New("test")()),
}

func testAccPreCheck(t *testing.T) *TestConfig {
	return testAccPreCheckWithConfig(t)
}

func TestAccPersonDataSource_Found(t *testing.T) {
	config := testAccPreCheck(t)

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: AccProviderConfig(`  dn_attribute = "distinguishedName"
  processors = [
    { type = "add_today_date" },
  ]
`) + `
data "persondir_person" "test" {
  identifier = "` + config.Identifier + `"
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.persondir_person.test", "id", config.Identifier),
					resource.TestCheckResourceAttr("data.persondir_person.test", "found", "true"),
					resource.TestCheckResourceAttrSet("data.persondir_person.test", "dn"),
					resource.TestCheckResourceAttr("data.persondir_person.test", "attributes.date.#", "1"),
				),
			},
		},
	})
}

func TestAccPersonDataSource_Missing(t *testing.T) {
	testAccPreCheck(t)

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: AccProviderConfig("") + `
data "persondir_person" "missing" {
  identifier = "tf-acc-no-such-person"
}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.persondir_person.missing", "found", "false"),
					resource.TestCheckResourceAttr("data.persondir_person.missing", "attributes.%", "0"),
					resource.TestCheckNoResourceAttr("data.persondir_person.missing", "dn"),
				),
			},
		},
	})
}

func TestAccAttributeNamesDataSource(t *testing.T) {
	testAccPreCheck(t)

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: AccProviderConfig(`  attributes        = ["cn", "mail"]
  attribute_mapping = { sn = "lastName" }
`) + `
data "persondir_attribute_names" "test" {}
`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.persondir_attribute_names.test", "names.#", "3"),
					resource.TestCheckResourceAttr("data.persondir_attribute_names.test", "names.0", "cn"),
					resource.TestCheckResourceAttr("data.persondir_attribute_names.test", "names.1", "lastName"),
					resource.TestCheckResourceAttr("data.persondir_attribute_names.test", "names.2", "mail"),
				),
			},
		},
	})
}
