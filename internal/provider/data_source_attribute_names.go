package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/provider/helpers"
)

var _ datasource.DataSource = &AttributeNamesDataSource{}

func NewAttributeNamesDataSource() datasource.DataSource {
	return &AttributeNamesDataSource{}
}

// AttributeNamesDataSource reports every attribute name the pipeline can produce.
type AttributeNamesDataSource struct {
	data *ldapclient.ProviderData
}

// AttributeNamesDataSourceModel describes the data source data model.
type AttributeNamesDataSourceModel struct {
	ID    types.String `tfsdk:"id"`
	Names types.List   `tfsdk:"names"`
}

func (d *AttributeNamesDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_attribute_names"
}

func (d *AttributeNamesDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Lists the attribute names a `persondir_person` lookup can return: the requested attributes " +
			"under their mapped names, the names added by processors and the DN attribute. The directory is not queried.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "Constant identifier for this data source.",
				Computed:            true,
			},
			"names": schema.ListAttribute{
				MarkdownDescription: "Sorted attribute names.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *AttributeNamesDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	data, ok := req.ProviderData.(*ldapclient.ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *ldap.ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	d.data = data
}

func (d *AttributeNamesDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data AttributeNamesDataSourceModel

	ctx = initializeLogging(ctx)

	logCompletion := logging.LogDataSourceOperation(ctx, logging.NewTFLogger(logging.SubsystemProvider),
		"persondir_attribute_names", "read", nil)
	defer func() {
		var err error
		for _, diag := range resp.Diagnostics.Errors() {
			err = fmt.Errorf("%s: %s", diag.Summary(), diag.Detail())
			break
		}
		logCompletion(err)
	}()

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if d.data == nil || d.data.Engine == nil {
		resp.Diagnostics.AddError(
			"Unconfigured Provider",
			"The person directory provider has not been configured. Please report this issue to the provider developers.",
		)
		return
	}

	names := d.data.Engine.PossibleNames(ctx)

	list, diags := helpers.StringListValue(names)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	data.ID = types.StringValue("attribute_names")
	data.Names = list

	tflog.Debug(ctx, "Listed possible attribute names", map[string]any{
		"count": len(names),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
