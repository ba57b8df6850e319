// Package hcl_adapter reads scene files written in HCL.
//
// A scene is a flat list of node blocks:
//
//	node "command" "features" {
//	  cmd        = ["feature_extraction", "--input", node.camera_init.output.sfm]
//	  preset     = "normal"
//	  depends_on = [node.warmup]
//	}
//
// Attributes without variables are evaluated immediately. Attributes that
// reference `node.<id>` are kept as expressions and evaluated when the node
// runs, after its inputs have been computed.
package hcl_adapter
