/*
Package model provides the hyper-parameter and base types shared by recommendation models.

The pairwise ranking model (BPR) lives in the cf subpackage.
*/
package model
